package handlers

import (
	"net/http"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/services"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	leaderboardCacheKey = "leaderboard:current"
	leaderboardCacheTTL = 30 * time.Second
)

// exampleLeaderboard is the placeholder dataset served when the platform
// is unreachable. It is always flagged isExample so the UI can label it;
// fabricated scores must never look real.
func exampleLeaderboard() []services.LeaderboardEntry {
	return []services.LeaderboardEntry{
		{
			ParticipantName: "Example Team",
			Scores: services.Scores{
				CR:    48.2,
				PRD:   0.0021,
				Score: 94.5,
			},
		},
	}
}

// Leaderboard returns the competition standings. Results replace the
// previous fetch wholesale; they are never merged with locally tracked
// submissions, which are a different data source.
func Leaderboard(c *gin.Context) {
	var cached []services.LeaderboardEntry
	if err := database.CacheGet(leaderboardCacheKey, &cached); err == nil && len(cached) > 0 {
		c.JSON(http.StatusOK, gin.H{"results": cached})
		return
	}

	entries, err := codabench.Leaderboard(c.Request.Context())
	if err != nil || len(entries) == 0 {
		if err != nil {
			logger.Error().Err(err).Msg("Leaderboard fetch failed, serving example data")
		}
		c.JSON(http.StatusOK, gin.H{
			"results":   exampleLeaderboard(),
			"isExample": true,
		})
		return
	}

	if err := database.CacheSet(leaderboardCacheKey, entries, leaderboardCacheTTL); err != nil {
		logger.Debug().Err(err).Msg("Leaderboard cache write skipped")
	}

	c.JSON(http.StatusOK, gin.H{"results": entries})
}
