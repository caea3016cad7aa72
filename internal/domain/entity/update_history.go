package entity

import "time"

// HistoryEntry records one status transition of an update request
type HistoryEntry struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Actor          string    `json:"actor"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
