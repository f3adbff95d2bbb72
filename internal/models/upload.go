package models

import "time"

// Upload is a stored attachment blob. StorageID is the reference handed back
// to the uploader and later attached to a message.
type Upload struct {
	StorageID   string    `json:"storage_id"`
	UploaderID  int64     `json:"uploader_id,string"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
