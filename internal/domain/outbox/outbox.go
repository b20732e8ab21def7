package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of a sync record
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// SyncRecord stores one thread state snapshot waiting to be published to the
// account's other devices.
type SyncRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ThreadID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"thread_id"`
	Changes     uint32     `gorm:"not null" json:"changes"`
	Payload     []byte     `gorm:"type:jsonb;not null" json:"payload"`
	Status      Status     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	RetryCount  int        `gorm:"default:0" json:"retry_count"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// TableName returns the database table name
func (SyncRecord) TableName() string {
	return "thread_sync_outbox"
}
