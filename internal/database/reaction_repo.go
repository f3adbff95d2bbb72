package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
)

type reactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) ReactionRepository {
	return &reactionRepo{pool: pool}
}

func (r *reactionRepo) Add(ctx context.Context, reaction *models.Reaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reactions (message_id, member_id, workspace_id, emoji, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id, member_id, emoji) DO NOTHING`,
		reaction.MessageID, reaction.MemberID, reaction.WorkspaceID, reaction.Emoji, reaction.CreatedAt,
	)
	return err
}

func (r *reactionRepo) Remove(ctx context.Context, messageID, memberID int64, emoji string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND member_id = $2 AND emoji = $3`,
		messageID, memberID, emoji,
	)
	return err
}

func (r *reactionRepo) Exists(ctx context.Context, messageID, memberID int64, emoji string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reactions WHERE message_id = $1 AND member_id = $2 AND emoji = $3)`,
		messageID, memberID, emoji,
	).Scan(&exists)
	return exists, err
}

// GroupsByMessages aggregates reactions per message and emoji, in the order
// each emoji was first used.
func (r *reactionRepo) GroupsByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error) {
	groups := make(map[int64][]models.ReactionGroup)
	if len(messageIDs) == 0 {
		return groups, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT message_id, emoji, COUNT(*), array_agg(member_id ORDER BY created_at)
		 FROM reactions
		 WHERE message_id = ANY($1)
		 GROUP BY message_id, emoji
		 ORDER BY message_id, MIN(created_at)`,
		messageIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID int64
			g         models.ReactionGroup
			memberIDs []int64
		)
		if err := rows.Scan(&messageID, &g.Emoji, &g.Count, &memberIDs); err != nil {
			return nil, err
		}
		g.MemberIDs = make([]snowflake.ID, len(memberIDs))
		for i, id := range memberIDs {
			g.MemberIDs[i] = snowflake.ID(id)
		}
		groups[messageID] = append(groups[messageID], g)
	}
	return groups, rows.Err()
}
