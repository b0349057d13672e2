package model

import (
	"time"
)

const (
	SenderUser       = "user"
	SenderGatekeeper = "gatekeeper"
)

// Message is one line of a goal's check-in conversation.
type Message struct {
	ID        string    `db:"id" json:"id"`
	GoalID    string    `db:"goal_id" json:"goalId"`
	Sender    string    `db:"sender" json:"sender"`
	Text      string    `db:"text" json:"text"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
