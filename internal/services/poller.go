package services

import (
	"context"
	"sync"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
	"gorm.io/gorm"
)

// Tracker polls Codabench for submission results. One goroutine per
// tracked submission, each with its own attempt budget; a poll only
// mutates its own record so no cross-submission locking is needed.
type Tracker struct {
	client      Platform
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewTracker(client Platform, interval time.Duration, maxAttempts int) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		cancels:     make(map[string]context.CancelFunc),
		baseCtx:     ctx,
		stop:        cancel,
	}
}

// Track starts polling a submission until it reaches a terminal status or
// the attempt budget runs out. Locally-synthesized ids are not trackable
// against the platform and are ignored.
func (t *Tracker) Track(submissionID string) {
	if models.IsLocalSubmissionID(submissionID) {
		logger.Debug().Str("submission_id", submissionID).Msg("Local submission, not trackable")
		return
	}

	t.mu.Lock()
	if _, already := t.cancels[submissionID]; already {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(t.baseCtx)
	t.cancels[submissionID] = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.poll(ctx, submissionID)
}

// Cancel stops polling one submission.
func (t *Tracker) Cancel(submissionID string) {
	t.mu.Lock()
	if cancel, ok := t.cancels[submissionID]; ok {
		cancel()
		delete(t.cancels, submissionID)
	}
	t.mu.Unlock()
}

// Stop cancels every poll loop and waits for them to drain.
func (t *Tracker) Stop() {
	t.stop()
	t.wg.Wait()
}

func (t *Tracker) poll(ctx context.Context, submissionID string) {
	defer t.wg.Done()
	defer t.Cancel(submissionID)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		result, err := t.client.Status(ctx, submissionID)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("submission_id", submissionID).
				Int("attempt", attempt).
				Msg("Status poll failed")
			continue
		}

		status := NormalizeStatus(result.Status)
		switch status {
		case models.SubStatusCompleted, models.SubStatusFailed:
			if err := t.applyTerminal(submissionID, status, result.Scores); err != nil {
				logger.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to record terminal status")
			}
			return
		case models.SubStatusProcessing:
			// First observation of the platform picking the job up.
			database.DB.Model(&models.Submission{}).
				Where("id = ? AND status = ?", submissionID, models.SubStatusPending).
				Update("status", models.SubStatusProcessing)
		}
	}

	// Budget exhausted: leave the record as processing, the user can check
	// back later. Not an error. The status endpoint may have reconciled the
	// record to a terminal state while our own polls were failing; terminal
	// states are never downgraded.
	logger.Info().
		Str("submission_id", submissionID).
		Int("attempts", t.maxAttempts).
		Msg("Poll budget exhausted, submission still processing")
	database.DB.Model(&models.Submission{}).
		Where("id = ? AND status IN ?", submissionID,
			[]models.SubmissionStatus{models.SubStatusPending, models.SubStatusProcessing}).
		Update("status", models.SubStatusProcessing)
}

// applyTerminal records a terminal status and, on completion, raises the
// team's cached high score when the new score strictly exceeds it.
func (t *Tracker) applyTerminal(submissionID string, status models.SubmissionStatus, scores *Scores) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			return err
		}

		sub.Status = status
		if status == models.SubStatusCompleted && scores != nil {
			sub.CR = scores.CR
			sub.PRD = scores.PRD
			sub.Score = scores.Score
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		if status == models.SubStatusCompleted && scores != nil {
			var team models.Team
			if err := tx.First(&team, "id = ?", sub.TeamID).Error; err == nil {
				if scores.Score > team.HighScore {
					if err := tx.Model(&team).Update("high_score", scores.Score).Error; err != nil {
						return err
					}
				}
			}
		}

		logger.Info().
			Str("submission_id", submissionID).
			Str("status", string(status)).
			Msg("Submission reached terminal status")
		return nil
	})
}
