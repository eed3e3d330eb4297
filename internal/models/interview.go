package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one interview attempt for a single role profile.
type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *string   `gorm:"size:64" json:"user_id,omitempty"`
	RoleProfile string    `gorm:"size:255;not null" json:"role_profile"`
	CreatedAt   time.Time `json:"created_at"`
	Turns       []Turn    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Turn is one question/answer exchange within a session. AText stays nil
// until the candidate answers; at most one turn per session is open.
type Turn struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`
	QText     string    `gorm:"type:text;not null" json:"q_text"`
	AText     *string   `gorm:"type:text" json:"a_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Score     *Score    `gorm:"foreignKey:TurnID" json:"-"`
}

// Answered reports whether the candidate has supplied an answer for the turn.
func (t Turn) Answered() bool {
	return t.AText != nil
}

// Score is the immutable three-dimension evaluation of one answered turn.
type Score struct {
	TurnID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"turn_id"`
	Content   int       `gorm:"not null" json:"content"`
	Structure int       `gorm:"not null" json:"structure"`
	Comms     int       `gorm:"column:comms;not null" json:"communication"`
	CreatedAt time.Time `json:"created_at"`
}
