package handlers

import (
	"net/http"
	"strings"

	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"github.com/asmaravianti/ecg-compression/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	TeamName string `json:"teamName" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// isUniqueViolation recognizes duplicate-key errors from Postgres and from
// the SQLite driver used in tests.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// Register creates a team account. Uniqueness of email and team name is
// enforced by database constraints, so concurrent registrations racing on
// the same values cannot both succeed.
func Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	if res := utils.ValidateTeamName(input.TeamName); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}
	if res := utils.ValidateEmail(input.Email); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}
	if res := utils.ValidatePassword(input.Password); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	team := models.Team{
		ID:           uuid.New().String(),
		TeamName:     input.TeamName,
		Email:        input.Email,
		PasswordHash: string(hashed),
	}

	if err := database.DB.Create(&team).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email or team name already registered"})
			return
		}
		logger.Error().Err(err).Msg("Failed to create team")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	logger.Info().Str("team", team.TeamName).Msg("Team registered")
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful"})
}

// Login authenticates a team. The response for an unknown email and a
// wrong password is identical so accounts cannot be enumerated.
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	var team models.Team
	if err := database.DB.Where("email = ?", input.Email).First(&team).Error; err != nil {
		logger.Warn().Str("email", input.Email).Msg("Login failed: team not found")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(input.Password)); err != nil {
		logger.Warn().Str("email", input.Email).Msg("Login failed: bad password")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(team.Email, team.TeamName)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	logger.Info().Str("team", team.TeamName).Msg("Team logged in")
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"teamName": team.TeamName,
	})
}
