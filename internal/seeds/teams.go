package seeds

import (
	"log"

	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedDemoTeam creates a known account for local development so the
// frontend can be exercised without going through registration. Never
// called outside development mode.
func SeedDemoTeam() {
	log.Println("Checking demo team...")

	email := "demo@ecg-compression.local"

	var team models.Team
	if err := database.DB.Where("email = ?", email).First(&team).Error; err == nil {
		log.Printf("Demo team found: %s", team.TeamName)
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("DemoTeam2025"), bcrypt.DefaultCost)

	team = models.Team{
		ID:           uuid.New().String(),
		TeamName:     "Demo Team",
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := database.DB.Create(&team).Error; err != nil {
		log.Printf("Warning: failed to seed demo team: %v", err)
		return
	}
	log.Printf("Demo team created: %s / DemoTeam2025", email)
}
