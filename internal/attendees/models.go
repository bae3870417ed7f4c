package attendees

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attendee is a checked-in event participant. TicketID is the canonical
// lookup key for issuing and verifying certificates.
type Attendee struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	TicketID  string    `gorm:"uniqueIndex;not null" json:"ticket_id"`
	Email     *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Attendee) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ImportBatch records the outcome of one roster upload.
type ImportBatch struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Filename  string         `json:"filename"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Errors    datatypes.JSON `json:"errors"`
	CreatedAt time.Time      `json:"created_at"`
}

func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// RowError describes why a roster record was skipped. Line is the 1-based record number.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Row is one parsed roster line before normalization. Reason is set when the
// line could not be decoded; such rows are skipped on import.
type Row struct {
	Line     int
	TicketID string
	Name     string
	Email    string
	Reason   string
}

// ImportResult summarises an import.
type ImportResult struct {
	BatchID   uuid.UUID  `json:"batch_id"`
	Processed int        `json:"processed"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors,omitempty"`
}

// ListFilter pages and searches the attendee list.
type ListFilter struct {
	Search   string
	Page     int
	PageSize int
}

// ListResponse is the admin list payload.
type ListResponse struct {
	Attendees []Attendee `json:"attendees"`
	Count     int64      `json:"count"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}
