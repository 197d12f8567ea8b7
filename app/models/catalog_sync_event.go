package models

import "time"

const (
	SyncEventInsert = "INSERT"
	SyncEventUpdate = "UPDATE"
	SyncEventDelete = "DELETE"
)

// CatalogSyncEvent stores every received catalog change event together with
// its processing outcome. Events are intentionally not deduplicated: the
// upstream sender replays events after failures, and remote creation is
// guarded by idempotency keys, so a replayed row must be reprocessed.
type CatalogSyncEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TableName       string     `gorm:"type:varchar(64);not null;index" json:"table_name"`
	EventType       string     `gorm:"type:varchar(16);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
