package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepo{pool: pool}
}

// conversationSelect resolves both participants to their user ids.
const conversationSelect = `SELECT c.id, c.workspace_id, c.member_one_id, c.member_two_id,
        m1.user_id, m2.user_id, c.created_at
 FROM conversations c
 INNER JOIN members m1 ON m1.id = c.member_one_id
 INNER JOIN members m2 ON m2.id = c.member_two_id`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.MemberOneID, &c.MemberTwoID,
		&c.UserOneID, &c.UserTwoID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, conversationSelect+` WHERE c.id = $1`, id))
}

// GetOrCreate returns the conversation between two members of a workspace,
// creating it with newID when none exists. The pair is unordered.
func (r *conversationRepo) GetOrCreate(ctx context.Context, workspaceID, memberA, memberB, newID int64) (*models.Conversation, error) {
	one, two := models.OrderedPair(memberA, memberB)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, workspace_id, member_one_id, member_two_id, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (workspace_id, member_one_id, member_two_id) DO NOTHING`,
		newID, workspaceID, one, two,
	)
	if err != nil {
		return nil, err
	}

	return scanConversation(r.pool.QueryRow(ctx,
		conversationSelect+` WHERE c.workspace_id = $1 AND c.member_one_id = $2 AND c.member_two_id = $3`,
		workspaceID, one, two,
	))
}

// ListByMember returns the member's conversations, newest first.
func (r *conversationRepo) ListByMember(ctx context.Context, memberID int64) ([]models.Conversation, error) {
	rows, err := r.pool.Query(ctx,
		conversationSelect+`
		 WHERE c.member_one_id = $1 OR c.member_two_id = $1
		 ORDER BY c.id DESC`, memberID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, rows.Err()
}
