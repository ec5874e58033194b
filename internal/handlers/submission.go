package handlers

import (
	"fmt"
	"net/http"
	"time"

	appconfig "github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/internal/services"
	apperrors "github.com/asmaravianti/ecg-compression/pkg/errors"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"github.com/asmaravianti/ecg-compression/pkg/utils"
	"github.com/gin-gonic/gin"
)

type SubmitInput struct {
	AlgorithmName  string `json:"algorithmName" binding:"required"`
	Description    string `json:"description"`
	ArtifactHandle string `json:"artifactHandle" binding:"required"`
	PaperType      string `json:"paperType"`
	PaperHandle    string `json:"paperHandle"`
	PaperLink      string `json:"paperLink"`
}

// resolvePaper validates the paper info and returns the reference stored
// on the submission record.
func resolvePaper(c *gin.Context, input *SubmitInput, teamID string) (models.PaperType, string, bool) {
	switch models.PaperType(input.PaperType) {
	case models.PaperNone, "":
		return models.PaperNone, "", true
	case models.PaperFile:
		var upload models.Upload
		err := database.DB.Where("id = ? AND team_id = ? AND kind = ?",
			input.PaperHandle, teamID, models.UploadPaper).First(&upload).Error
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Paper file not found, upload it first"})
			return "", "", false
		}
		return models.PaperFile, upload.ID, true
	case models.PaperLink:
		if res := utils.ValidatePaperLink(input.PaperLink); !res.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
			return "", "", false
		}
		return models.PaperLink, input.PaperLink, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Paper type must be none, file or link"})
		return "", "", false
	}
}

// SubmitToCodabench forwards a stored artifact to the external platform.
// On upstream failure the degrade toggle decides between propagating the
// error and recording a locally-flagged unconfirmed submission. An
// unconfirmed submission is never presented as successful scoring.
func SubmitToCodabench(c *gin.Context) {
	var input SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		return
	}

	if res := utils.ValidateAlgorithmName(input.AlgorithmName); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}
	if res := utils.ValidateDescription(input.Description); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}

	teamName := middleware.TeamName(c)
	teamID := teamIDFor(c)
	if teamID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Team not found"})
		return
	}

	paperType, paperRef, ok := resolvePaper(c, &input, teamID)
	if !ok {
		return
	}

	var artifact models.Upload
	err := database.DB.Where("id = ? AND team_id = ? AND kind = ?",
		input.ArtifactHandle, teamID, models.UploadAlgorithm).First(&artifact).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "File does not exist"})
		return
	}

	reader, err := files.Open(c.Request.Context(), artifact.StorageKey)
	if err != nil {
		logger.Error().Err(err).Str("handle", artifact.ID).Msg("Stored artifact unreadable")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Stored file could not be read"})
		return
	}
	defer reader.Close()

	submissionID, submitErr := codabench.Submit(c.Request.Context(), services.SubmitRequest{
		TeamName:      teamName,
		AlgorithmName: input.AlgorithmName,
		Description:   input.Description,
		FileName:      artifact.OriginalName,
		File:          reader,
	})

	sub := models.Submission{
		TeamID:        teamID,
		TeamName:      teamName,
		AlgorithmName: input.AlgorithmName,
		Description:   input.Description,
		ArtifactFile:  artifact.OriginalName,
		PaperType:     paperType,
		PaperRef:      paperRef,
	}

	if submitErr != nil {
		logger.Error().Err(submitErr).Str("team", teamName).Msg("Codabench forward failed")

		if !appconfig.AppConfig.SubmitDegradeGracefully {
			c.Error(apperrors.Upstream("Submission to the scoring platform failed, try again later"))
			return
		}

		// Graceful degrade: record locally with a synthesized id. The
		// local- prefix keeps the id space disjoint from platform ids and
		// the unconfirmed status keeps the failure visible to the user.
		sub.ID = fmt.Sprintf("%s%d", models.LocalIDPrefix, time.Now().UnixMilli())
		sub.Status = models.SubStatusUnconfirmed
		sub.Verified = false

		if err := database.DB.Create(&sub).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to record local submission")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Submission could not be recorded"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "Submission recorded locally",
			"submissionId": sub.ID,
			"status":       string(models.SubStatusUnconfirmed),
		})
		return
	}

	sub.ID = submissionID
	sub.Status = models.SubStatusPending
	sub.Verified = true

	if err := database.DB.Create(&sub).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to record submission")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Submission could not be recorded"})
		return
	}

	tracker.Track(sub.ID)

	c.JSON(http.StatusOK, gin.H{
		"message":      "Submission successful",
		"submissionId": sub.ID,
		"status":       string(sub.Status),
	})
}

// SubmissionStatus reports the current state of one submission. Local ids
// short-circuit: they were never acknowledged by the platform and cannot
// be polled.
func SubmissionStatus(c *gin.Context) {
	id := c.Param("id")
	teamID := teamIDFor(c)

	var sub models.Submission
	if err := database.DB.Where("id = ? AND team_id = ?", id, teamID).First(&sub).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Submission not found"})
		return
	}

	if sub.IsLocal() {
		c.JSON(http.StatusOK, gin.H{
			"id":        sub.ID,
			"status":    string(models.SubStatusUnconfirmed),
			"trackable": false,
			"message":   "This submission was recorded while the scoring platform was unreachable and cannot be tracked",
		})
		return
	}

	// Terminal records are served from the store; nothing can change.
	if sub.IsTerminal() {
		c.JSON(http.StatusOK, submissionView(&sub))
		return
	}

	result, err := codabench.Status(c.Request.Context(), sub.ID)
	if err != nil {
		logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("Status check failed")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to check status"})
		return
	}

	// Reconcile the stored record with what the platform reports.
	status := services.NormalizeStatus(result.Status)
	sub.Status = status
	if status == models.SubStatusCompleted && result.Scores != nil {
		sub.CR = result.Scores.CR
		sub.PRD = result.Scores.PRD
		sub.Score = result.Scores.Score
	}
	if err := database.DB.Save(&sub).Error; err != nil {
		logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to persist reconciled status")
	}

	c.JSON(http.StatusOK, submissionView(&sub))
}

func submissionView(sub *models.Submission) gin.H {
	view := gin.H{
		"id":          sub.ID,
		"status":      string(sub.Status),
		"description": sub.Description,
		"created":     sub.CreatedAt,
		"trackable":   !sub.IsLocal(),
	}
	if sub.Status == models.SubStatusCompleted {
		view["scores"] = gin.H{
			"CR":    sub.CR,
			"PRD":   sub.PRD,
			"Score": sub.Score,
		}
	}
	return view
}

// ListSubmissions returns the team's submission history, newest first.
func ListSubmissions(c *gin.Context) {
	teamID := teamIDFor(c)

	var subs []models.Submission
	if err := database.DB.Where("team_id = ?", teamID).
		Order("created_at desc").
		Find(&subs).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to list submissions")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	var team models.Team
	highScore := 0.0
	if err := database.DB.Select("high_score").Where("id = ?", teamID).First(&team).Error; err == nil {
		highScore = team.HighScore
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       len(subs),
		"highScore":   highScore,
	})
}

// TestCodabench probes the upstream platform with the configured key.
func TestCodabench(c *gin.Context) {
	if err := codabench.TestConnection(c.Request.Context()); err != nil {
		logger.Error().Err(err).Msg("Codabench connection test failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to connect to Codabench API",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully connected to Codabench API",
	})
}
