package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType is the kind of row change behind a ChangeEvent
type ChangeType string

const (
	ChangeTypeInsert ChangeType = "INSERT"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
	// ChangeTypeAny is used when the source cannot tell which kind of change happened
	ChangeTypeAny ChangeType = "*"
)

// Remote tables that publish change events
const (
	TableServices   = "services"
	TableBusinesses = "businesses"
	TableReviews    = "reviews"
	TablePopupLeads = "popup_leads"
)

// Tables lists every table a client may stream
func Tables() []string {
	return []string{TableServices, TableBusinesses, TableReviews, TablePopupLeads}
}

// ChangeEvent tells subscribers that a table changed. It carries no row
// payload; consumers refetch instead of diffing.
type ChangeEvent struct {
	ID        string     `json:"id"`
	Table     string     `json:"table"`
	Type      ChangeType `json:"type"`
	RecordID  string     `json:"record_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with a fresh id and the current time
func NewChangeEvent(table string, changeType ChangeType, recordID string) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Table:     table,
		Type:      changeType,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
}
