package models

import (
	"strings"
	"time"
)

type SubmissionStatus string

const (
	SubStatusPending    SubmissionStatus = "pending"
	SubStatusProcessing SubmissionStatus = "processing"
	SubStatusCompleted  SubmissionStatus = "completed"
	SubStatusFailed     SubmissionStatus = "failed"
	// Unconfirmed marks a submission whose forward to Codabench failed and
	// was recorded locally instead. Never promoted to completed.
	SubStatusUnconfirmed SubmissionStatus = "unconfirmed"
)

type PaperType string

const (
	PaperNone PaperType = "none"
	PaperFile PaperType = "file"
	PaperLink PaperType = "link"
)

// LocalIDPrefix marks identifiers synthesized when the forward to the
// external platform failed. The platform assigns numeric ids, so the two
// id spaces cannot collide.
const LocalIDPrefix = "local-"

// Submission tracks one artifact through upload, forward and scoring.
// ID is the Codabench-assigned identifier, or a local- prefixed fallback.
type Submission struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TeamID   string `gorm:"index" json:"teamId"`
	TeamName string `json:"teamName"`

	AlgorithmName string `json:"algorithmName"`
	Description   string `json:"description"`
	ArtifactFile  string `json:"artifactFileName"`

	PaperType PaperType `gorm:"type:text;default:'none'" json:"paperType"`
	PaperRef  string    `json:"paperRef"`

	Status SubmissionStatus `gorm:"type:text;default:'pending'" json:"status"`

	// Scores from the platform, valid once Status is completed.
	CR    float64 `json:"cr"`
	PRD   float64 `json:"prd"`
	Score float64 `json:"score"`

	// Verified is false for locally-recorded submissions the platform never
	// acknowledged.
	Verified bool `gorm:"default:true" json:"verified"`
}

// IsLocal reports whether the id was synthesized locally and can never be
// resolved against the platform.
func (s *Submission) IsLocal() bool {
	return IsLocalSubmissionID(s.ID)
}

func (s *Submission) IsTerminal() bool {
	return s.Status == SubStatusCompleted || s.Status == SubStatusFailed
}

func IsLocalSubmissionID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
