package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/redis"
	"github.com/cristhian-fs/slack-clone/internal/storage"
)

const MaxUploadSize = 10 << 20 // 10 MiB

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// FileStorage abstracts object storage operations for testability.
type FileStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	URL(key string) string
	Delete(ctx context.Context, key string) error
}

// UploadTokens issues and redeems one-time upload tokens.
type UploadTokens interface {
	StoreUploadToken(ctx context.Context, token string, userID int64, ttl time.Duration) error
	ConsumeUploadToken(ctx context.Context, token string) (int64, error)
}

// UploadService hands out one-time upload URLs and stores the blobs posted
// to them.
type UploadService struct {
	uploads   database.UploadRepository
	tokens    UploadTokens
	storage   FileStorage
	publicURL string
	ttl       time.Duration
}

// NewUploadService creates an UploadService. publicURL is the externally
// reachable base of this server.
func NewUploadService(
	uploads database.UploadRepository,
	tokens UploadTokens,
	storage FileStorage,
	publicURL string,
	ttl time.Duration,
) *UploadService {
	return &UploadService{
		uploads:   uploads,
		tokens:    tokens,
		storage:   storage,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       ttl,
	}
}

// GenerateUploadURL returns a URL that accepts exactly one upload from the
// caller before it expires.
func (s *UploadService) GenerateUploadURL(ctx context.Context, userID int64) (string, error) {
	if s.storage == nil {
		return "", Unavailable("STORAGE_UNAVAILABLE", "attachment storage is not configured")
	}
	token := uuid.NewString()
	if err := s.tokens.StoreUploadToken(ctx, token, userID, s.ttl); err != nil {
		return "", internalError(err)
	}
	return s.publicURL + "/api/v1/uploads/" + token, nil
}

// Store redeems token and writes body to object storage, returning the
// storage id to attach to a message.
func (s *UploadService) Store(ctx context.Context, token, contentType string, body io.Reader) (string, error) {
	if s.storage == nil {
		return "", Unavailable("STORAGE_UNAVAILABLE", "attachment storage is not configured")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !allowedContentTypes[mediaType] {
		return "", BadRequest("INVALID_CONTENT_TYPE", "only JPEG, PNG, GIF and WebP images can be attached")
	}

	userID, err := s.tokens.ConsumeUploadToken(ctx, token)
	if errors.Is(err, redis.ErrUploadTokenNotFound) {
		return "", Gone("UPLOAD_URL_EXPIRED", "upload URL is invalid or has already been used")
	}
	if err != nil {
		return "", internalError(err)
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return "", BadRequest("INVALID_BODY", "failed to read upload")
	}
	if len(data) == 0 {
		return "", BadRequest("INVALID_BODY", "upload is empty")
	}
	if len(data) > MaxUploadSize {
		return "", TooLarge("FILE_TOO_LARGE", fmt.Sprintf("file must be under %s", humanize.IBytes(MaxUploadSize)))
	}

	storageID := uuid.NewString()
	key := storage.AttachmentKey(storageID, mediaType)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
		return "", &ServiceError{Kind: ErrInternal, Code: "UPLOAD_FAILED", Message: "failed to store file", Cause: err}
	}

	upload := &models.Upload{
		StorageID:   storageID,
		UploaderID:  userID,
		ContentType: mediaType,
		Size:        int64(len(data)),
		StorageKey:  key,
		CreatedAt:   time.Now(),
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		_ = s.storage.Delete(ctx, key)
		return "", internalError(err)
	}
	metrics.UploadBytes.Add(float64(len(data)))
	return storageID, nil
}
