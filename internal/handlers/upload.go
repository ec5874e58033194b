package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	appconfig "github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"github.com/asmaravianti/ecg-compression/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// buildStorageKey derives a collision-resistant key from sanitized
// components: team/category/<nano>-<uuid fragment><ext>.
func buildStorageKey(teamName string, kind models.UploadKind, originalName string) (string, error) {
	teamDir, ok := utils.SanitizePathComponent(teamName)
	if !ok {
		return "", fmt.Errorf("team name yields no safe path component")
	}
	ext := utils.SafeExt(originalName)
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.New().String()[:8], ext)
	return fmt.Sprintf("%s/%s/%s", teamDir, kind, name), nil
}

func zipMimeAcceptable(header *multipart.FileHeader) bool {
	ct := header.Header.Get("Content-Type")
	switch ct {
	case "", "application/zip", "application/x-zip-compressed", "application/octet-stream":
		return true
	}
	return false
}

// UploadFiles accepts the algorithm archive plus an optional paper PDF,
// validates both, stores them under the team's directory and returns
// opaque handles. Filesystem paths never reach the client.
func UploadFiles(c *gin.Context) {
	teamName := middleware.TeamName(c)

	// Cap the body before the multipart parse spools it to disk. The slack
	// covers the paper file and multipart framing.
	maxSize := appconfig.AppConfig.MaxUploadSize
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+utils.MaxPaperSize+(1<<20))
	}

	// "algorithm" is the documented field; "file" is what the original
	// frontend sends.
	algoFile, algoHeader, err := c.Request.FormFile("algorithm")
	if err != nil {
		algoFile, algoHeader, err = c.Request.FormFile("file")
		if err != nil {
			if isBodyTooLarge(err) {
				c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("File exceeds the %dMB limit", maxSize/(1024*1024))})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
			return
		}
	}
	defer algoFile.Close()

	if res := utils.ValidateArtifactName(algoHeader.Filename); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
		return
	}
	if !zipMimeAcceptable(algoHeader) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Only .zip files are allowed"})
		return
	}
	if maxSize > 0 && algoHeader.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("File exceeds the %dMB limit", maxSize/(1024*1024))})
		return
	}

	algoKey, err := buildStorageKey(teamName, models.UploadAlgorithm, algoHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid team name for upload destination"})
		return
	}

	if err := files.Save(c.Request.Context(), algoKey, algoFile, algoHeader.Size, "application/zip"); err != nil {
		logger.Error().Err(err).Str("team", teamName).Msg("Failed to store algorithm upload")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	algoUpload := models.Upload{
		ID:           uuid.New().String(),
		TeamID:       teamIDFor(c),
		Kind:         models.UploadAlgorithm,
		OriginalName: sanitizeOriginalName(algoHeader.Filename),
		StorageKey:   algoKey,
		Size:         algoHeader.Size,
		ContentType:  "application/zip",
	}
	if err := database.DB.Create(&algoUpload).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to record upload")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	response := gin.H{
		"message":         "File uploaded successfully",
		"algorithmHandle": algoUpload.ID,
	}

	// Optional paper
	if paperFile, paperHeader, err := c.Request.FormFile("paper"); err == nil {
		defer paperFile.Close()

		if res := utils.ValidatePaperFile(paperHeader.Filename, paperHeader.Size); !res.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"message": res.Message})
			return
		}

		paperKey, err := buildStorageKey(teamName, models.UploadPaper, paperHeader.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid team name for upload destination"})
			return
		}
		if err := files.Save(c.Request.Context(), paperKey, paperFile, paperHeader.Size, "application/pdf"); err != nil {
			logger.Error().Err(err).Str("team", teamName).Msg("Failed to store paper upload")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
			return
		}

		paperUpload := models.Upload{
			ID:           uuid.New().String(),
			TeamID:       teamIDFor(c),
			Kind:         models.UploadPaper,
			OriginalName: sanitizeOriginalName(paperHeader.Filename),
			StorageKey:   paperKey,
			Size:         paperHeader.Size,
			ContentType:  "application/pdf",
		}
		if err := database.DB.Create(&paperUpload).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to record paper upload")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
			return
		}
		response["paperHandle"] = paperUpload.ID
	}

	c.JSON(http.StatusOK, response)
}

// isBodyTooLarge recognizes the MaxBytesReader abort, which the multipart
// parser may pass through either as-is or wrapped.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) ||
		strings.Contains(err.Error(), "request body too large")
}

func sanitizeOriginalName(name string) string {
	clean, ok := utils.SanitizePathComponent(name)
	if !ok {
		return "upload"
	}
	return utils.TruncateString(clean, 100)
}

// teamIDFor resolves the team record id for the authenticated team.
// Uploads and submissions are keyed by it rather than the display name.
func teamIDFor(c *gin.Context) string {
	var team models.Team
	if err := database.DB.Select("id").Where("email = ?", middleware.Email(c)).First(&team).Error; err != nil {
		return ""
	}
	return team.ID
}
