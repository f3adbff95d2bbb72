package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type channelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepo{pool: pool}
}

// Create inserts ch. Channel names are unique within a workspace.
func (r *channelRepo) Create(ctx context.Context, ch *models.Channel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (id, workspace_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		ch.ID, ch.WorkspaceID, ch.Name, ch.CreatedAt,
	)
	return err
}

func (r *channelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, created_at FROM channels WHERE id = $1`, id)
	return scanChannel(row)
}

// GetByName looks a channel up by its name inside a workspace.
func (r *channelRepo) GetByName(ctx context.Context, workspaceID int64, name string) (*models.Channel, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, name, created_at FROM channels
		 WHERE workspace_id = $1 AND name = $2`, workspaceID, name)
	return scanChannel(row)
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	if err := row.Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

func (r *channelRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}
