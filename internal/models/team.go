package models

import "time"

// Team is the credential record created at registration. Unique indexes on
// email and team name make concurrent registration races resolve in the
// database instead of in application code.
type Team struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TeamName     string `gorm:"uniqueIndex" json:"teamName"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`

	// Best Score observed across the team's completed submissions. Only
	// raised, never lowered.
	HighScore float64 `gorm:"default:0" json:"highScore"`
}
