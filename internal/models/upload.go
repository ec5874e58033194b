package models

import "time"

type UploadKind string

const (
	UploadAlgorithm UploadKind = "algorithm"
	UploadPaper     UploadKind = "paper"
)

// Upload maps an opaque handle to a stored file. Clients only ever see the
// handle; the storage key stays server-side.
type Upload struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	TeamID       string     `gorm:"index" json:"teamId"`
	Kind         UploadKind `gorm:"type:text" json:"kind"`
	OriginalName string     `json:"originalName"`
	StorageKey   string     `json:"-"`
	Size         int64      `json:"size"`
	ContentType  string     `json:"contentType"`
}
