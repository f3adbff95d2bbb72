package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type uploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepo{pool: pool}
}

func (r *uploadRepo) Create(ctx context.Context, u *models.Upload) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO uploads (storage_id, uploader_id, content_type, size, storage_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.StorageID, u.UploaderID, u.ContentType, u.Size, u.StorageKey, u.CreatedAt,
	)
	return err
}

func (r *uploadRepo) GetByStorageID(ctx context.Context, storageID string) (*models.Upload, error) {
	u := &models.Upload{}
	err := r.pool.QueryRow(ctx,
		`SELECT storage_id, uploader_id, content_type, size, storage_key, created_at
		 FROM uploads WHERE storage_id = $1`, storageID,
	).Scan(&u.StorageID, &u.UploaderID, &u.ContentType, &u.Size, &u.StorageKey, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}
