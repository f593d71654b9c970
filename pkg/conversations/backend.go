// Package conversations implements 1:1 messaging with per message read state.
package conversations

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tradepost/funcircle/pkg/users"
	"github.com/tradepost/funcircle/pkg/users/types"
)

const foreignKeyViolation = "23503"

const selectConversation = "SELECT id, participant_one, participant_two, last_message_at, created_at FROM conversations"

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// GetOrCreate returns the conversation between user and other, creating it
// if needed.
func (b *Backend) GetOrCreate(ctx context.Context, user, other int) (*Conversation, error) {
	if user == other {
		return nil, ErrSelfReference
	}

	one, two := ordered(user, other)

	stmt, err := b.db.PrepareContext(ctx, `INSERT INTO conversations (participant_one, participant_two, created_at)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, one, two, time.Now().UTC())
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
		return nil, ErrUnknownUser
	}

	if err != nil {
		return nil, err
	}

	query, err := b.db.PrepareContext(ctx, selectConversation+" WHERE participant_one = $1 AND participant_two = $2;")
	if err != nil {
		return nil, err
	}
	defer query.Close()

	conversation := &Conversation{}
	err = scanConversation(query.QueryRowContext(ctx, one, two), conversation)
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

// Get returns a conversation by id.
func (b *Backend) Get(ctx context.Context, id int) (*Conversation, error) {
	stmt, err := b.db.PrepareContext(ctx, selectConversation+" WHERE id = $1;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	conversation := &Conversation{}
	err = scanConversation(stmt.QueryRowContext(ctx, id), conversation)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return conversation, nil
}

// Send appends a message. The conversation row is locked so last_message_at
// moves in write order.
func (b *Backend) Send(ctx context.Context, conversation, sender int, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	c := &Conversation{}
	err = scanConversation(tx.QueryRowContext(ctx, selectConversation+" WHERE id = $1 FOR UPDATE;", conversation), c)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return nil, ErrNotFound
	}

	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if !c.IsParticipant(sender) {
		_ = tx.Rollback()
		return nil, ErrNotAParticipant
	}

	message := &Message{ConversationID: conversation, SenderID: sender, Content: content, CreatedAt: time.Now().UTC()}
	err = tx.QueryRowContext(
		ctx,
		"INSERT INTO messages (conversation_id, sender_id, content, is_read, created_at) VALUES ($1, $2, $3, false, $4) RETURNING id;",
		conversation, sender, content, message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to insert message")
	}

	_, err = tx.ExecContext(ctx, "UPDATE conversations SET last_message_at = $2 WHERE id = $1;", conversation, message.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "failed to update conversation")
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return message, nil
}

// MarkRead marks every message from the other participant as read and
// returns how many changed.
func (b *Backend) MarkRead(ctx context.Context, conversation, reader int) (int64, error) {
	err := b.authorize(ctx, conversation, reader)
	if err != nil {
		return 0, err
	}

	stmt, err := b.db.PrepareContext(ctx, "UPDATE messages SET is_read = true WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false;")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, conversation, reader)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// UnreadCount counts the unread messages user received in a conversation.
func (b *Backend) UnreadCount(ctx context.Context, conversation, user int) (int, error) {
	err := b.authorize(ctx, conversation, user)
	if err != nil {
		return 0, err
	}

	stmt, err := b.db.PrepareContext(ctx, "SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false;")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int
	err = stmt.QueryRowContext(ctx, conversation, user).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListConversations returns the conversations of user, most recently active
// first, each annotated with the other participant.
func (b *Backend) ListConversations(ctx context.Context, user int) ([]*Conversation, error) {
	stmt, err := b.db.PrepareContext(ctx, `SELECT conversations.id, conversations.participant_one, conversations.participant_two,
		conversations.last_message_at, conversations.created_at,
		(SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.id AND messages.sender_id <> $1 AND messages.is_read = false),
		COALESCE((SELECT content FROM messages WHERE messages.conversation_id = conversations.id ORDER BY messages.created_at DESC, messages.id DESC LIMIT 1), ''),
		`+users.Columns+`
		FROM conversations
		INNER JOIN users ON (users.id = CASE WHEN conversations.participant_one = $1 THEN conversations.participant_two ELSE conversations.participant_one END)
		WHERE conversations.participant_one = $1 OR conversations.participant_two = $1
		ORDER BY conversations.last_message_at DESC NULLS LAST, conversations.id DESC;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Conversation, 0)
	for rows.Next() {
		c := &Conversation{Other: &types.User{}}

		var (
			last     sql.NullTime
			location sql.NullString
		)

		err := rows.Scan(
			&c.ID, &c.ParticipantOne, &c.ParticipantTwo, &last, &c.CreatedAt,
			&c.UnreadCount, &c.LastMessage,
			&c.Other.ID, &c.Other.DisplayName, &c.Other.Username, &c.Other.Image, &location, &c.Other.Verified, &c.Other.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if last.Valid {
			c.LastMessageAt = &last.Time
		}

		c.Other.Location = location.String
		c.LastMessage = snippet(c.LastMessage)
		result = append(result, c)
	}

	return result, rows.Err()
}

// ListMessages returns a page of messages in write order. When before is
// set only messages with a lower id are returned.
func (b *Backend) ListMessages(ctx context.Context, conversation, user, limit, before int) ([]*Message, error) {
	err := b.authorize(ctx, conversation, user)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	stmt, err := b.db.PrepareContext(ctx, `SELECT id, conversation_id, sender_id, content, is_read, created_at FROM (
		SELECT id, conversation_id, sender_id, content, is_read, created_at FROM messages
		WHERE conversation_id = $1 AND ($2 = 0 OR id < $2)
		ORDER BY created_at DESC, id DESC LIMIT $3
	) AS page ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, conversation, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Message, 0)
	for rows.Next() {
		m := &Message{}
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsRead, &m.CreatedAt)
		if err != nil {
			return nil, err
		}

		result = append(result, m)
	}

	return result, rows.Err()
}

func (b *Backend) authorize(ctx context.Context, conversation, user int) error {
	c, err := b.Get(ctx, conversation)
	if err != nil {
		return err
	}

	if !c.IsParticipant(user) {
		return ErrNotAParticipant
	}

	return nil
}

func scanConversation(row users.Scanner, c *Conversation) error {
	var last sql.NullTime
	err := row.Scan(&c.ID, &c.ParticipantOne, &c.ParticipantTwo, &last, &c.CreatedAt)
	if err != nil {
		return err
	}

	if last.Valid {
		c.LastMessageAt = &last.Time
	}

	return nil
}
