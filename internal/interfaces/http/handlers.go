package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/ops-approval/internal/application/service"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CreateReimbursementRequest is the draft body for POST /api/reimbursement/records
type CreateReimbursementRequest struct {
	UserID       int64   `json:"user_id" binding:"required,gt=0"`
	DepartmentID int64   `json:"department_id" binding:"required,gt=0"`
	Title        string  `json:"title" binding:"required,max=200"`
	Type         string  `json:"type" binding:"max=50"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Remark       string  `json:"remark" binding:"max=1000"`
}

// CreateAssetRequestRequest is the draft body for POST /api/asset_request/records
type CreateAssetRequestRequest struct {
	AssetID      int64  `json:"asset_id" binding:"required,gt=0"`
	UserID       int64  `json:"user_id" binding:"required,gt=0"`
	DepartmentID int64  `json:"department_id" binding:"required,gt=0"`
	Type         string `json:"type" binding:"required,oneof=repair return transfer"`
	Description  string `json:"description" binding:"max=1000"`
}

// DecisionRequest is the body of POST /api/:businessType/records/:id/decisions.
// NodeID, when present, is the node the approver saw; a decision on any other node is refused.
type DecisionRequest struct {
	ActorID int64  `json:"actor_id" binding:"required,gt=0"`
	Action  string `json:"action" binding:"required,oneof=approve reject"`
	Opinion string `json:"opinion" binding:"max=1000"`
	NodeID  *int64 `json:"node_id" binding:"omitempty,gt=0"`
}

// WorkflowStatusRequest is the body of PUT /admin/workflows/:id/status
type WorkflowStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, detail := true, interface{}(nil)
	if h.health != nil {
		healthy, detail = h.health()
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: detail,
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{
		Success: healthy,
		Data:    response,
	})
}

// CreateRecord handles POST /api/:businessType/records
func (h *Handlers) CreateRecord(c *gin.Context) {
	ctx := c.Request.Context()

	switch entity.BusinessType(c.Param("businessType")) {
	case entity.BusinessTypeReimbursement:
		var req CreateReimbursementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(badRequest(err))
			return
		}

		claim, err := h.services.Reimbursements.CreateDraft(ctx, service.DraftReimbursement{
			UserID:       req.UserID,
			DepartmentID: req.DepartmentID,
			Title:        req.Title,
			Type:         req.Type,
			Amount:       req.Amount,
			Remark:       req.Remark,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, Response{Success: true, Data: claim})

	case entity.BusinessTypeAssetRequest:
		var req CreateAssetRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(badRequest(err))
			return
		}

		request, err := h.services.Assets.CreateDraft(ctx, service.DraftAssetRequest{
			AssetID:      req.AssetID,
			UserID:       req.UserID,
			DepartmentID: req.DepartmentID,
			Type:         req.Type,
			Description:  req.Description,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, Response{Success: true, Data: request})

	default:
		_ = c.Error(unknownType(c))
	}
}

// Submit handles POST /api/:businessType/records/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	result, err := h.services.Approval.Submit(c.Request.Context(), c.Param("businessType"), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Decide handles POST /api/:businessType/records/:id/decisions
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest(err))
		return
	}

	result, err := h.services.Approval.Decide(c.Request.Context(), c.Param("businessType"), id, workflow.DecideRequest{
		ActorID:        req.ActorID,
		Action:         entity.DecisionAction(req.Action),
		Opinion:        req.Opinion,
		ExpectedNodeID: req.NodeID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Cancel handles POST /api/:businessType/records/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	var err error
	switch entity.BusinessType(c.Param("businessType")) {
	case entity.BusinessTypeReimbursement:
		err = h.services.Reimbursements.Cancel(c.Request.Context(), id)
	case entity.BusinessTypeAssetRequest:
		err = h.services.Assets.Cancel(c.Request.Context(), id)
	default:
		err = unknownType(c)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Record cancelled", "business_type", c.Param("businessType"), "record_id", id)
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "status": entity.RecordStatusCancelled}})
}

// Progress handles GET /api/:businessType/records/:id/progress
func (h *Handlers) Progress(c *gin.Context) {
	id, ok := recordID(c)
	if !ok {
		return
	}

	progress, err := h.services.Approval.Progress(c.Request.Context(), c.Param("businessType"), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: progress})
}

// UpdateWorkflowStatus handles PUT /admin/workflows/:id/status.
// Records already routed to the workflow keep following it.
func (h *Handlers) UpdateWorkflowStatus(c *gin.Context) {
	id, ok := pathID(c, "workflow")
	if !ok {
		return
	}

	var req WorkflowStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest(err))
		return
	}

	status := entity.WorkflowStatus(req.Status)
	if err := h.services.Catalog.SetStatus(c.Request.Context(), id, status); err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Workflow status updated", "workflow_id", id, "status", req.Status)
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "status": status}})
}

// RemoveWorkflowNode handles DELETE /admin/workflow-nodes/:id
func (h *Handlers) RemoveWorkflowNode(c *gin.Context) {
	id, ok := pathID(c, "node")
	if !ok {
		return
	}

	if err := h.services.Catalog.RemoveNode(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Workflow node removed", "node_id", id)
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id}})
}

// recordID parses the :id path parameter of a record route
func recordID(c *gin.Context) (int64, bool) {
	return pathID(c, "record")
}

// pathID parses the :id path parameter, attaching a 400 on failure
func pathID(c *gin.Context, kind string) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(badRequest(fmt.Errorf("invalid %s ID %q", kind, raw)))
		return 0, false
	}
	return id, true
}

func unknownType(c *gin.Context) error {
	return fmt.Errorf("%w: %s", service.ErrUnknownBusinessType, c.Param("businessType"))
}
