package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an in-memory SQLite DB for testing.
func SetupTestDB() {
	db, _ := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	database.DB = db
	database.DB.AutoMigrate(
		&models.Team{},
		&models.Upload{},
		&models.Submission{},
	)
	config.AppConfig = &config.Config{
		JWTSecret:               "test-secret",
		TokenTTLHours:           24,
		MaxUploadSize:           50 * 1024 * 1024,
		SubmitDegradeGracefully: true,
	}
}

func postJSON(handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	jsonVal, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonVal))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	handler(c)
	return w
}

func TestRegister_Success(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	w := postJSON(Register, "/api/register", map[string]string{
		"teamName": "Reg Success",
		"email":    "reg_success@example.com",
		"password": "Abcd1234",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var team models.Team
	err := database.DB.Where("email = ?", "reg_success@example.com").First(&team).Error
	assert.NoError(t, err)
	assert.Equal(t, "Reg Success", team.TeamName)
	// Stored hash, never the raw password
	assert.NotEqual(t, "Abcd1234", team.PasswordHash)
	assert.NotEmpty(t, team.PasswordHash)
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	w := postJSON(Register, "/api/register", map[string]string{
		"teamName": "Weak Pass Team",
		"email":    "weak_pass@example.com",
		"password": "abcd1234", // no uppercase
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	database.DB.Model(&models.Team{}).Where("email = ?", "weak_pass@example.com").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	body := map[string]string{
		"teamName": "Dup Email Team",
		"email":    "dup_email@example.com",
		"password": "Abcd1234",
	}
	w := postJSON(Register, "/api/register", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	body["teamName"] = "Dup Email Team B"
	w = postJSON(Register, "/api/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	database.DB.Model(&models.Team{}).Where("email = ?", "dup_email@example.com").Count(&count)
	assert.Equal(t, int64(1), count, "no duplicate records survive")
}

func TestRegister_DuplicateTeamNameConflicts(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	body := map[string]string{
		"teamName": "Dup Name Team",
		"email":    "dup_name_a@example.com",
		"password": "Abcd1234",
	}
	w := postJSON(Register, "/api/register", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	body["email"] = "dup_name_b@example.com"
	w = postJSON(Register, "/api/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_TokenCarriesIdentity(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	postJSON(Register, "/api/register", map[string]string{
		"teamName": "Login Team",
		"email":    "login_ok@example.com",
		"password": "Abcd1234",
	})

	w := postJSON(Login, "/api/login", map[string]string{
		"email":    "login_ok@example.com",
		"password": "Abcd1234",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token    string `json:"token"`
		TeamName string `json:"teamName"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "Login Team", resp.TeamName)
	assert.NotEmpty(t, resp.Token)

	claims, err := utils.ValidateToken(resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, "login_ok@example.com", claims.Email)
	assert.Equal(t, "Login Team", claims.TeamName)
}

func TestLogin_NoAccountEnumeration(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	postJSON(Register, "/api/register", map[string]string{
		"teamName": "Enum Team",
		"email":    "enum@example.com",
		"password": "Abcd1234",
	})

	wrongPassword := postJSON(Login, "/api/login", map[string]string{
		"email":    "enum@example.com",
		"password": "Wrong1234",
	})
	unknownEmail := postJSON(Login, "/api/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "Abcd1234",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Identical body for both failure modes
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}
