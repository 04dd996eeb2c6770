package models

import (
	"time"
)

// PlayerSnapshot is the SQL row holding one encoded player snapshot.
type PlayerSnapshot struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	FormatVersion int       `json:"format_version"`
	Payload       string    `gorm:"type:longtext" json:"-"`
	LoopNumber    int       `json:"loop_number"`
	NihilismScore int       `json:"nihilism_score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName pins the table name used by gorm.
func (PlayerSnapshot) TableName() string {
	return "player_snapshots"
}
