package model

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionLog records one behavior tree tick of one unit.
type DecisionLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SkirmishID string         `gorm:"index:idx_decision_skirmish;size:64;not null" json:"skirmish_id"`
	Round      int            `gorm:"index:idx_decision_skirmish" json:"round"`
	UnitID     string         `gorm:"index:idx_decision_unit;size:64;not null" json:"unit_id"`
	Archetype  string         `gorm:"size:32" json:"archetype"`
	Status     string         `gorm:"size:16" json:"status"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	Tokens     int            `json:"tokens"`
	Trace      datatypes.JSON `json:"trace"`
	CreatedAt  time.Time      `gorm:"index:idx_decision_created;autoCreateTime:milli" json:"created_at"`
}

// TokenSpend records one accepted ledger spend.
type TokenSpend struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SkirmishID string    `gorm:"index:idx_spend_skirmish;size:64" json:"skirmish_id"`
	UnitID     string    `gorm:"index:idx_spend_unit;size:64;not null" json:"unit_id"`
	Round      int       `json:"round"`
	Cost       int       `json:"cost"`
	Balance    int       `json:"balance"`
	CreatedAt  time.Time `gorm:"autoCreateTime:milli" json:"created_at"`
}
