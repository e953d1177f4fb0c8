package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

var languageTagPattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z]{2})?$`)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateChannelType validates a channel type parameter.
func ValidateChannelType(t model.ChannelType) error {
	if !t.Valid() {
		return errors.New("unknown channel type")
	}
	return nil
}

// ValidateStaffStatus validates a staff status value.
func ValidateStaffStatus(s model.StaffStatus) error {
	if !s.Valid() {
		return errors.New("unknown staff status")
	}
	return nil
}

// ValidateLanguageTag validates an optional BCP-47-ish language tag
// (e.g. "en", "fr-FR").
func ValidateLanguageTag(tag string) error {
	if tag == "" {
		return nil
	}
	if !languageTagPattern.MatchString(tag) {
		return errors.New("invalid language tag")
	}
	return nil
}
