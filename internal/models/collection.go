package models

import "time"

// Collection stores one keyed collection as a JSON array. Revision guards writes.
type Collection struct {
	Name     string `gorm:"primaryKey;size:64" json:"name"`
	Payload  string `gorm:"type:text;not null" json:"payload"`
	Revision int64  `gorm:"not null;default:1" json:"revision"`

	UpdatedAt time.Time `json:"updated_at"`
}
