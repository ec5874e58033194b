package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/pkg/logger"
)

// Platform is the surface of the external benchmarking service the portal
// talks to. Handlers and the poller depend on this interface so tests can
// substitute a fake.
type Platform interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Status(ctx context.Context, submissionID string) (*StatusResult, error)
	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
	TestConnection(ctx context.Context) error
}

type SubmitRequest struct {
	TeamName      string
	AlgorithmName string
	Description   string
	FileName      string
	File          io.Reader
}

type Scores struct {
	CR    float64 `json:"CR"`
	PRD   float64 `json:"PRD"`
	Score float64 `json:"Score"`
}

// UnmarshalJSON tolerates both numeric and string score values; the
// platform has been observed sending either.
func (s *Scores) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parse := func(key string) float64 {
		v, ok := raw[key]
		if !ok {
			return 0
		}
		str := strings.Trim(string(v), `"`)
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return 0
		}
		return f
	}
	s.CR = parse("CR")
	s.PRD = parse("PRD")
	s.Score = parse("Score")
	return nil
}

type StatusResult struct {
	Status      string  `json:"status"`
	Description string  `json:"description"`
	Created     string  `json:"created"`
	Scores      *Scores `json:"scores,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type LeaderboardEntry struct {
	ParticipantName string `json:"participant_name"`
	Scores          Scores `json:"scores"`
}

// NormalizeStatus maps the platform's status strings onto the portal's
// lifecycle. Codabench reports "finished" for scored submissions.
func NormalizeStatus(raw string) models.SubmissionStatus {
	switch strings.ToLower(raw) {
	case "finished", "completed":
		return models.SubStatusCompleted
	case "failed", "error":
		return models.SubStatusFailed
	case "", "none", "submitted":
		return models.SubStatusPending
	default:
		return models.SubStatusProcessing
	}
}

const submitTimeout = 60 * time.Second

// CodabenchClient talks to the Codabench HTTP API, authenticated by the
// competition's secret key from process configuration.
type CodabenchClient struct {
	httpClient    *http.Client
	baseURL       string
	competitionID string
	secretKey     string
}

type ClientOptions struct {
	HTTPClient    *http.Client
	BaseURL       string
	CompetitionID string
	SecretKey     string
}

func NewCodabenchClient(opts ClientOptions) *CodabenchClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CodabenchClient{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		competitionID: opts.CompetitionID,
		secretKey:     opts.SecretKey,
	}
}

func NewCodabenchClientFromConfig() *CodabenchClient {
	cfg := config.AppConfig
	return NewCodabenchClient(ClientOptions{
		BaseURL:       cfg.CodabenchAPIURL,
		CompetitionID: cfg.CodabenchCompetitionID,
		SecretKey:     cfg.CodabenchSecretKey,
	})
}

func (c *CodabenchClient) keyedURL(path string) string {
	return fmt.Sprintf("%s%s?secret_key=%s", c.baseURL, path, c.secretKey)
}

// Submit forwards an artifact to the competition's submission endpoint and
// returns the platform-assigned identifier.
func (c *CodabenchClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		description := req.Description
		if description == "" {
			description = fmt.Sprintf("Team: %s, Algorithm: %s", req.TeamName, req.AlgorithmName)
		}
		if err = mw.WriteField("description", description); err != nil {
			return
		}
		if err = mw.WriteField("method_name", req.AlgorithmName); err != nil {
			return
		}
		if err = mw.WriteField("phase", "1"); err != nil {
			return
		}
		var part io.Writer
		if part, err = mw.CreateFormFile("file", req.FileName); err != nil {
			return
		}
		if _, err = io.Copy(part, req.File); err != nil {
			return
		}
		err = mw.Close()
	}()

	submitURL := c.keyedURL(fmt.Sprintf("/competitions/%s/submissions/", c.competitionID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, pr)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("codabench submission: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", logger.RedactSecrets(string(body))).
			Msg("Codabench submission rejected")
		return "", fmt.Errorf("codabench submission failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.ID.String() == "" {
		// The platform accepted the upload but the response carried no id.
		// A made-up numeric id would be indistinguishable from a real one
		// and would be polled for the full budget; treat it as a failed
		// forward so the caller records the submission locally instead.
		logger.Warn().
			Str("body", logger.RedactSecrets(string(body))).
			Msg("Codabench submission response carried no id")
		return "", fmt.Errorf("codabench submission response carried no id")
	}
	return parsed.ID.String(), nil
}

// authToken exchanges the secret key for a short-lived platform token used
// by the status endpoint.
func (c *CodabenchClient) authToken(ctx context.Context) (string, error) {
	loginURL := c.keyedURL("/auth/login")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("codabench auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("codabench auth failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("codabench auth response carried no token")
	}
	return parsed.Token, nil
}

// Status queries the platform for a submission's current state.
func (c *CodabenchClient) Status(ctx context.Context, submissionID string) (*StatusResult, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}

	statusURL := fmt.Sprintf("%s/competitions/%s/submissions/%s", c.baseURL, c.competitionID, submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("codabench status: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("submission_id", submissionID).
			Str("body", logger.RedactSecrets(string(body))).
			Msg("Codabench status check failed")
		return nil, fmt.Errorf("codabench status check failed with status %d", resp.StatusCode)
	}

	var result StatusResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Leaderboard tries the documented endpoint shapes in order of preference:
// the competition object's embedded leaderboards, then the first phase's
// leaderboard endpoint. Callers supply their own fallback when both fail.
func (c *CodabenchClient) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	entries, err := c.competitionLeaderboard(ctx)
	if err == nil && len(entries) > 0 {
		return entries, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Competition leaderboard unavailable, trying phases")
	}

	entries, phaseErr := c.phaseLeaderboard(ctx)
	if phaseErr != nil {
		if err == nil {
			err = phaseErr
		}
		return nil, fmt.Errorf("leaderboard fetch failed: %w", err)
	}
	return entries, nil
}

func (c *CodabenchClient) competitionLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var parsed struct {
		Leaderboards []struct {
			Leaderboard []LeaderboardEntry `json:"leaderboard"`
		} `json:"leaderboards"`
	}
	if err := c.getJSON(ctx, c.keyedURL("/competitions/"+c.competitionID), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Leaderboards) == 0 {
		return nil, nil
	}
	return parsed.Leaderboards[0].Leaderboard, nil
}

func (c *CodabenchClient) phaseLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var phases []struct {
		ID json.Number `json:"id"`
	}
	if err := c.getJSON(ctx, c.keyedURL(fmt.Sprintf("/competitions/%s/phases", c.competitionID)), &phases); err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("competition has no phases")
	}

	var parsed struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	phaseURL := c.keyedURL(fmt.Sprintf("/competitions/%s/phases/%s/leaderboard", c.competitionID, phases[0].ID.String()))
	if err := c.getJSON(ctx, phaseURL, &parsed); err != nil {
		return nil, err
	}
	return parsed.Leaderboard, nil
}

// TestConnection verifies the competition is reachable with the configured
// secret key.
func (c *CodabenchClient) TestConnection(ctx context.Context) error {
	var parsed map[string]interface{}
	return c.getJSON(ctx, c.keyedURL("/competitions/"+c.competitionID), &parsed)
}

func (c *CodabenchClient) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("codabench request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("url", logger.RedactSecrets(rawURL)).
			Str("body", logger.RedactSecrets(string(body))).
			Msg("Codabench request failed")
		return fmt.Errorf("codabench returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
