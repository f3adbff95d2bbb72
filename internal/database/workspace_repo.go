package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type workspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &workspaceRepo{pool: pool}
}

func (r *workspaceRepo) Create(ctx context.Context, ws *models.Workspace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, owner_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		ws.ID, ws.Name, ws.OwnerID, ws.CreatedAt,
	)
	return err
}

func (r *workspaceRepo) GetByID(ctx context.Context, id int64) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at
		 FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ws, err
}

func (r *workspaceRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	return err
}
