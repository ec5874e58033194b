package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// validate.go - Form and file validation for the submission portal.
// Every validator reports a result instead of failing hard; callers decide
// what to do with an invalid input.

const (
	MaxPaperSize = 10 * 1024 * 1024 // 10MB
)

// ValidationResult is the shared {valid, message} shape used by all
// validators.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func ok() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Message: msg}
}

var (
	emailRegex         = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	teamNameRegex      = regexp.MustCompile(`^[a-zA-Z0-9 ]{3,30}$`)
	algorithmNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 ]{3,50}$`)
)

func ValidateEmail(email string) ValidationResult {
	if !emailRegex.MatchString(email) {
		return invalid("Please enter a valid email address")
	}
	return ok()
}

// ValidatePassword requires length >= 8 with at least one digit, one
// uppercase and one lowercase letter.
func ValidatePassword(password string) ValidationResult {
	var hasNumber, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasNumber = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if len(password) < 8 || !hasNumber || !hasUpper || !hasLower {
		return invalid("Password must be at least 8 characters long and contain at least one number, one uppercase letter, and one lowercase letter")
	}
	return ok()
}

func ValidateTeamName(teamName string) ValidationResult {
	if !teamNameRegex.MatchString(teamName) {
		return invalid("Team name must be 3-30 characters long and contain only letters, numbers, and spaces")
	}
	return ok()
}

func ValidateAlgorithmName(algorithmName string) ValidationResult {
	if !algorithmNameRegex.MatchString(algorithmName) {
		return invalid("Algorithm name must be 3-50 characters long and contain only letters, numbers, and spaces")
	}
	return ok()
}

// ValidateDescription checks the optional free-text description. An empty
// description is fine; a provided one must be 10-500 characters.
func ValidateDescription(description string) ValidationResult {
	if description == "" {
		return ok()
	}
	if len(description) < 10 || len(description) > 500 {
		return invalid("Description must be between 10 and 500 characters")
	}
	return ok()
}

// ValidateArtifactName checks that an uploaded algorithm archive is a zip.
func ValidateArtifactName(filename string) ValidationResult {
	if !strings.HasSuffix(strings.ToLower(filename), ".zip") {
		return invalid("Please upload a .zip file")
	}
	return ok()
}

// ValidatePaperFile checks the optional paper upload: pdf, at most 10MB.
func ValidatePaperFile(filename string, size int64) ValidationResult {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return invalid("Please upload a .pdf file")
	}
	if size > MaxPaperSize {
		return invalid(fmt.Sprintf("Paper file must not exceed %dMB", MaxPaperSize/(1024*1024)))
	}
	return ok()
}

// ValidatePaperLink checks that a paper URL is an absolute http(s) URL.
func ValidatePaperLink(link string) ValidationResult {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("Please provide a valid link to your paper")
	}
	return ok()
}
