package db

import (
	"context"
	"fmt"
	"time"

	"agora/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

func (db *DB) CreateMessage(ctx context.Context, message models.Message) (models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	message.Id = uuid.NewString()
	message.Read = false
	message.CreatedAt = time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("messages").
		Cols("id", "sender_id", "recipient_id", "content", "read", "created_at").
		Values(message.Id, message.SenderId, message.RecipientId, message.Content, false, message.CreatedAt)

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", translate(err))
	}
	return message, nil
}

// GetConversations returns the latest message exchanged with each partner,
// most recent conversation first, with the count of unread incoming messages.
func (db *DB) GetConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (partner_id) *
			FROM (
				SELECT m.*, CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS partner_id
				FROM messages m
				WHERE m.sender_id = $1 OR m.recipient_id = $1
			) exchanged
			ORDER BY partner_id, created_at DESC
		)
		SELECT
			latest.partner_id, u.username, u.handle, COALESCE(u.profile_image, ''),
			latest.id, latest.sender_id, latest.recipient_id, latest.content, latest.read, latest.created_at,
			(SELECT COUNT(*) FROM messages x WHERE x.sender_id = latest.partner_id AND x.recipient_id = $1 AND NOT x.read)
		FROM latest JOIN users u ON u.id = latest.partner_id
		ORDER BY latest.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(
			&c.Partner.Id, &c.Partner.Username, &c.Partner.Handle, &c.Partner.ProfileImage,
			&c.LastMessage.Id, &c.LastMessage.SenderId, &c.LastMessage.RecipientId,
			&c.LastMessage.Content, &c.LastMessage.Read, &c.LastMessage.CreatedAt,
			&c.Unread,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// GetThread returns one page of messages between two users, newest first
func (db *DB) GetThread(ctx context.Context, userID, partnerID string, page, pageSize int) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "sender_id", "recipient_id", "content", "read", "created_at").
		From("messages").
		Where(sb.Or(
			sb.And(sb.Equal("sender_id", userID), sb.Equal("recipient_id", partnerID)),
			sb.And(sb.Equal("sender_id", partnerID), sb.Equal("recipient_id", userID)),
		)).
		OrderBy("created_at DESC", "id DESC").
		Limit(pageSize).
		Offset(offset(page, pageSize))

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Id, &m.SenderId, &m.RecipientId, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkThreadRead marks every message from partnerID to userID as read
func (db *DB) MarkThreadRead(ctx context.Context, userID, partnerID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.db.ExecContext(ctx,
		"UPDATE messages SET read = TRUE WHERE sender_id = $1 AND recipient_id = $2 AND NOT read",
		partnerID, userID,
	)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}
