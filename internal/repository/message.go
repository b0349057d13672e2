package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/model"
)

// MessageRepository is the append-only chat log, keyed by goal.
type MessageRepository interface {
	Append(msg *model.Message) error
	History(goalID string) ([]*model.Message, error)
	DeleteByGoal(goalID string) error
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(msg *model.Message) error {
	query := `INSERT INTO chat_messages (id, goal_id, sender, text, timestamp, seq)
	          SELECT $1, $2, $3, $4, $5, COALESCE(MAX(seq), 0) + 1
	          FROM chat_messages WHERE goal_id = $2`

	_, err := r.db.Exec(query, msg.ID, msg.GoalID, msg.Sender, msg.Text, msg.Timestamp)
	return err
}

func (r *messageRepository) History(goalID string) ([]*model.Message, error) {
	var messages []*model.Message
	query := `SELECT id, goal_id, sender, text, timestamp FROM chat_messages
	          WHERE goal_id = $1 ORDER BY seq ASC`

	err := r.db.Select(&messages, query, goalID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) DeleteByGoal(goalID string) error {
	_, err := r.db.Exec(`DELETE FROM chat_messages WHERE goal_id = $1`, goalID)
	return err
}
