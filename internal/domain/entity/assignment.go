package entity

import "time"

// ApproverAssignment is a custom-group membership row
type ApproverAssignment struct {
	ID              int64   `json:"id"`
	GroupName       string  `json:"group_name"`
	UserID          int64   `json:"user_id"`
	DelegateUserID  *int64  `json:"delegate_user_id,omitempty"`
	DelegateStart   *string `json:"delegate_start,omitempty"` // YYYY-MM-DD
	DelegateEnd     *string `json:"delegate_end,omitempty"`   // YYYY-MM-DD
	DepartmentScope []int64 `json:"department_scope,omitempty"`
	// AmountLimit is the ceiling this approver may sign off; nil means unlimited
	AmountLimit *float64  `json:"amount_limit,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CoversDepartment returns true when the scope is empty or contains the department
func (a *ApproverAssignment) CoversDepartment(departmentID int64) bool {
	if len(a.DepartmentScope) == 0 {
		return true
	}
	for _, id := range a.DepartmentScope {
		if id == departmentID {
			return true
		}
	}
	return false
}

// CoversAmount returns true when there is no ceiling, no amount, or the amount fits
func (a *ApproverAssignment) CoversAmount(amount *float64) bool {
	if a.AmountLimit == nil || amount == nil {
		return true
	}
	return *a.AmountLimit >= *amount
}

// EffectiveUser returns the delegate while day falls inside the inclusive
// delegation window, and the assigned user otherwise.
func (a *ApproverAssignment) EffectiveUser(day time.Time) int64 {
	if a.DelegateUserID == nil || a.DelegateStart == nil || a.DelegateEnd == nil {
		return a.UserID
	}
	today := day.Format(DateLayout)
	if today >= *a.DelegateStart && today <= *a.DelegateEnd {
		return *a.DelegateUserID
	}
	return a.UserID
}
