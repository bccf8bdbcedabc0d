package order

import (
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StatusLogEntry is the append-only audit trail of status transitions. One
// entry is written per transition, in the same transaction as the status
// change itself.
type StatusLogEntry struct {
	shared.BaseEntity
	OrderID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_order_status_log_order"`
	FromStatus OrderStatus `gorm:"type:varchar(20);not null"`
	ToStatus   OrderStatus `gorm:"type:varchar(20);not null"`
	Actor      string      `gorm:"type:varchar(255)"`
	Notes      string      `gorm:"type:text"`
	OccurredAt time.Time   `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (StatusLogEntry) TableName() string {
	return "order_status_log"
}

// NewStatusLogEntry records one transition
func NewStatusLogEntry(orderID uuid.UUID, from, to OrderStatus, actor, notes string, occurredAt time.Time) *StatusLogEntry {
	return &StatusLogEntry{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Notes:      notes,
		OccurredAt: occurredAt,
	}
}
