package entity

import "time"

// ApprovalHistoryEntry is one append-only decision on a record's node.
// NodeOrder is a snapshot so the trail can be replayed after catalog edits.
// ActorName is filled on reads and stays empty once the user row is gone.
type ApprovalHistoryEntry struct {
	ID           int64          `json:"id"`
	BusinessType BusinessType   `json:"business_type"`
	RecordID     int64          `json:"record_id"`
	WorkflowID   int64          `json:"workflow_id"`
	NodeID       int64          `json:"node_id"`
	NodeOrder    int            `json:"node_order"`
	ActorID      int64          `json:"actor_id"`
	ActorName    string         `json:"actor_name,omitempty"`
	Action       DecisionAction `json:"action"`
	Opinion      string         `json:"opinion"`
	CreatedAt    time.Time      `json:"created_at"`
}
