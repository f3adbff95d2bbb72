package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

// messageSelect joins the author and attachment, and summarizes replies
// through the most recent one.
const messageSelect = `SELECT m.id, m.workspace_id, m.channel_id, m.conversation_id, m.parent_message_id, m.member_id,
        m.body, m.image_id, m.created_at, m.updated_at,
        u.name, u.image, up.storage_key,
        t.reply_count, t.last_reply_at, t.last_name, t.last_image
 FROM messages m
 INNER JOIN members mb ON mb.id = m.member_id
 INNER JOIN users u ON u.id = mb.user_id
 LEFT JOIN uploads up ON up.storage_id = m.image_id
 LEFT JOIN LATERAL (
     SELECT COUNT(*) OVER () AS reply_count, r.created_at AS last_reply_at,
            ru.name AS last_name, ru.image AS last_image
     FROM messages r
     INNER JOIN members rm ON rm.id = r.member_id
     INNER JOIN users ru ON ru.id = rm.user_id
     WHERE r.parent_message_id = m.id
     ORDER BY r.id DESC
     LIMIT 1
 ) t ON TRUE`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.MessageWithAuthor, error) {
	var (
		m            models.MessageWithAuthor
		channelID    *int64
		conversation *int64
		count        *int
		lastAt       *time.Time
		lastName     *string
		lastImage    *string
	)
	err := row.Scan(
		&m.ID, &m.WorkspaceID, &channelID, &conversation, &m.ParentMessageID, &m.MemberID,
		&m.Body, &m.ImageID, &m.CreatedAt, &m.UpdatedAt,
		&m.AuthorName, &m.AuthorImage, &m.ImageKey,
		&count, &lastAt, &lastName, &lastImage,
	)
	if err != nil {
		return nil, err
	}
	if channelID != nil {
		m.ChannelID = *channelID
	}
	if conversation != nil {
		m.ConversationID = *conversation
	}
	if count != nil && *count > 0 && lastAt != nil {
		m.Thread = &models.ThreadSummary{
			Count:       *count,
			LastImage:   lastImage,
			LastReplyAt: *lastAt,
		}
		if lastName != nil {
			m.Thread.LastName = *lastName
		}
	}
	return &m, nil
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, workspace_id, channel_id, conversation_id, parent_message_id, member_id, body, image_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.WorkspaceID, nullID(msg.ChannelID), nullID(msg.ConversationID), msg.ParentMessageID, msg.MemberID,
		msg.Body, msg.ImageID, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*models.MessageWithAuthor, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *messageRepo) List(ctx context.Context, q MessageQuery) ([]models.MessageWithAuthor, error) {
	container, id := "m.channel_id", q.ChannelID
	if q.ConversationID != 0 {
		container, id = "m.conversation_id", q.ConversationID
	}
	rows, err := r.pool.Query(ctx,
		messageSelect+`
		 WHERE `+container+` = $1
		   AND (($2::BIGINT IS NULL AND m.parent_message_id IS NULL) OR m.parent_message_id = $2)
		   AND ($3::BIGINT IS NULL OR m.id < $3)
		 ORDER BY m.id DESC
		 LIMIT $4`,
		id, q.ParentID, q.Before, q.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.MessageWithAuthor
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (r *messageRepo) Update(ctx context.Context, msg *models.Message) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET body = $2, updated_at = $3
		 WHERE id = $1`,
		msg.ID, msg.Body, msg.UpdatedAt,
	)
	return err
}

func (r *messageRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

// nullID maps the zero id to SQL NULL.
func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
