package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPollerDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Team{}, &models.Submission{}))
	database.DB = db
}

// stubPlatform serves a scripted sequence of status results, one per poll.
type stubPlatform struct {
	mu      sync.Mutex
	results []StatusResult
	calls   int
}

func (s *stubPlatform) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	return "stub", nil
}

func (s *stubPlatform) Status(ctx context.Context, id string) (*StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	r := s.results[idx]
	return &r, nil
}

func (s *stubPlatform) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	return nil, nil
}

func (s *stubPlatform) TestConnection(ctx context.Context) error { return nil }

func seedSubmission(t *testing.T, highScore float64) (models.Team, models.Submission) {
	t.Helper()
	team := models.Team{
		ID:        uuid.New().String(),
		TeamName:  "Poll Team " + uuid.New().String()[:8],
		Email:     uuid.New().String() + "@example.com",
		HighScore: highScore,
	}
	assert.NoError(t, database.DB.Create(&team).Error)

	sub := models.Submission{
		ID:       uuid.New().String(),
		TeamID:   team.ID,
		TeamName: team.TeamName,
		Status:   models.SubStatusPending,
		Verified: true,
	}
	assert.NoError(t, database.DB.Create(&sub).Error)
	return team, sub
}

func TestTracker_CompletionRecordsScoresAndRaisesHighScore(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{
		{Status: "running"},
		{Status: "finished", Scores: &Scores{CR: 41.5, PRD: 0.003, Score: 92.0}},
	}}
	tracker := NewTracker(stub, 5*time.Millisecond, 10)
	defer tracker.Stop()

	team, sub := seedSubmission(t, 80.0)
	tracker.Track(sub.ID)

	assert.Eventually(t, func() bool {
		var got models.Submission
		if database.DB.First(&got, "id = ?", sub.ID).Error != nil {
			return false
		}
		return got.Status == models.SubStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	var got models.Submission
	database.DB.First(&got, "id = ?", sub.ID)
	assert.InDelta(t, 41.5, got.CR, 0.001)
	assert.InDelta(t, 92.0, got.Score, 0.001)

	var gotTeam models.Team
	database.DB.First(&gotTeam, "id = ?", team.ID)
	assert.InDelta(t, 92.0, gotTeam.HighScore, 0.001)
}

func TestTracker_LowerScoreDoesNotLowerHighScore(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{
		{Status: "finished", Scores: &Scores{Score: 70.0}},
	}}
	tracker := NewTracker(stub, 5*time.Millisecond, 10)
	defer tracker.Stop()

	team, sub := seedSubmission(t, 95.0)
	tracker.Track(sub.ID)

	assert.Eventually(t, func() bool {
		var got models.Submission
		database.DB.First(&got, "id = ?", sub.ID)
		return got.Status == models.SubStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	var gotTeam models.Team
	database.DB.First(&gotTeam, "id = ?", team.ID)
	assert.InDelta(t, 95.0, gotTeam.HighScore, 0.001)
}

func TestTracker_FailureRecordedWithoutScores(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{
		{Status: "failed", Error: "scoring program crashed"},
	}}
	tracker := NewTracker(stub, 5*time.Millisecond, 10)
	defer tracker.Stop()

	_, sub := seedSubmission(t, 0)
	tracker.Track(sub.ID)

	assert.Eventually(t, func() bool {
		var got models.Submission
		database.DB.First(&got, "id = ?", sub.ID)
		return got.Status == models.SubStatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	var got models.Submission
	database.DB.First(&got, "id = ?", sub.ID)
	assert.Zero(t, got.Score)
}

func TestTracker_ExhaustedBudgetLeavesProcessing(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{
		{Status: "running"},
	}}
	tracker := NewTracker(stub, 5*time.Millisecond, 3)
	defer tracker.Stop()

	_, sub := seedSubmission(t, 0)
	tracker.Track(sub.ID)

	assert.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.calls >= 3
	}, 2*time.Second, 5*time.Millisecond)

	// Budget exhaustion is not a failure; the user can check back later.
	assert.Eventually(t, func() bool {
		var got models.Submission
		database.DB.First(&got, "id = ?", sub.ID)
		return got.Status == models.SubStatusProcessing
	}, 2*time.Second, 5*time.Millisecond)
}

// flakyPlatform fails every status call and runs a hook on the first one,
// standing in for a concurrent writer reconciling the record elsewhere.
type flakyPlatform struct {
	mu          sync.Mutex
	calls       int
	onFirstCall func()
}

func (f *flakyPlatform) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	return "flaky", nil
}

func (f *flakyPlatform) Status(ctx context.Context, id string) (*StatusResult, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first && f.onFirstCall != nil {
		f.onFirstCall()
	}
	return nil, errStatusUnreachable
}

var errStatusUnreachable = errors.New("connection reset by peer")

func (f *flakyPlatform) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	return nil, nil
}

func (f *flakyPlatform) TestConnection(ctx context.Context) error { return nil }

// The status endpoint can reconcile a submission to completed while the
// poller's own status calls are failing. Exhausting the attempt budget
// afterwards must not downgrade the terminal record back to processing.
func TestTracker_ExhaustionNeverDowngradesTerminalStatus(t *testing.T) {
	setupPollerDB(t)

	_, sub := seedSubmission(t, 0)

	flaky := &flakyPlatform{}
	flaky.onFirstCall = func() {
		database.DB.Model(&models.Submission{}).
			Where("id = ?", sub.ID).
			Updates(map[string]interface{}{
				"status": models.SubStatusCompleted,
				"score":  91.0,
			})
	}

	tracker := NewTracker(flaky, 5*time.Millisecond, 3)
	defer tracker.Stop()
	tracker.Track(sub.ID)

	// Wait for the poll goroutine to run out of budget and exit.
	assert.Eventually(t, func() bool {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()
		return len(tracker.cancels) == 0
	}, 2*time.Second, 5*time.Millisecond)

	var got models.Submission
	assert.NoError(t, database.DB.First(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubStatusCompleted, got.Status)
	assert.InDelta(t, 91.0, got.Score, 0.001)
}

func TestTracker_LocalIDNeverPolled(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{{Status: "running"}}}
	tracker := NewTracker(stub, time.Millisecond, 5)
	defer tracker.Stop()

	tracker.Track("local-1700000000000")
	time.Sleep(30 * time.Millisecond)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Zero(t, stub.calls, "local ids must never reach the platform")
}

func TestTracker_TrackIsIdempotent(t *testing.T) {
	setupPollerDB(t)

	stub := &stubPlatform{results: []StatusResult{
		{Status: "finished", Scores: &Scores{Score: 50}},
	}}
	tracker := NewTracker(stub, 5*time.Millisecond, 10)
	defer tracker.Stop()

	_, sub := seedSubmission(t, 0)
	tracker.Track(sub.ID)
	tracker.Track(sub.ID)

	tracker.mu.Lock()
	assert.LessOrEqual(t, len(tracker.cancels), 1)
	tracker.mu.Unlock()

	assert.Eventually(t, func() bool {
		var got models.Submission
		database.DB.First(&got, "id = ?", sub.ID)
		return got.Status == models.SubStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}
