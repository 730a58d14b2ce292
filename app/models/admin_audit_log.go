package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AdminAuditLog is write-only. ActorID 0 marks system actions such as reconciliation.
type AdminAuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ActorID    uint           `gorm:"index" json:"actor_id"`
	ActorEmail string         `gorm:"size:200" json:"actor_email"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	TargetType string         `gorm:"size:50;not null;index:idx_audit_target,priority:1" json:"target_type"`
	TargetID   uint           `gorm:"index:idx_audit_target,priority:2" json:"target_id"`
	Before     datatypes.JSON `json:"before,omitempty"`
	After      datatypes.JSON `json:"after,omitempty"`
	IPAddress  string         `gorm:"size:45" json:"ip_address"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// Snapshot marshals v for the Before/After columns; nil stays nil.
func Snapshot(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
