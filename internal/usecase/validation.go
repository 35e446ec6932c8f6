package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var nonDigits = regexp.MustCompile(`\D`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateCaptureLeadInput(input CaptureLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.UserID) == "" {
		errors = append(errors, ValidationError{"user_id", "is required"})
	}

	if strings.TrimSpace(input.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if input.Phone != "" && !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	return errors
}

func ValidateRecordReplyInput(input RecordReplyInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadID) == "" {
		errors = append(errors, ValidationError{"lead_id", "is required"})
	}
	if strings.TrimSpace(input.Text) == "" {
		errors = append(errors, ValidationError{"text", "is required"})
	}
	if input.MessageType != "" && !input.MessageType.Valid() {
		errors = append(errors, ValidationError{"message_type", "is not a known message type"})
	}
	if input.MessageType == entity.MessageFollowUp {
		errors = append(errors, ValidationError{"message_type", "follow-ups are written by the assistant only"})
	}

	return errors
}

// validationFailure folds field errors into a single DomainError.
func validationFailure(errs []ValidationError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed: " + strings.Join(msgs, ", "),
	}
}

// isValidPhoneNumber accepts E.164-ish numbers: 10 to 15 digits once
// punctuation is stripped.
func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 10 && len(cleaned) <= 15
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	cleaned := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(strings.TrimSpace(phone), "+") || len(cleaned) > 10 {
		return "+" + cleaned
	}
	// bare 10-digit numbers are US/CA
	return "+1" + cleaned
}
