package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateCaptureHTML validates a submitted page capture body.
func ValidateCaptureHTML(html string) error {
	if len(html) == 0 {
		return errors.New("html cannot be empty")
	}
	if !utf8.ValidString(html) {
		return errors.New("html must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a store record id.
func ValidateConversationID(id string) error {
	if len(id) == 0 {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("conversation ID exceeds maximum length")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateTags validates a tag list.
func ValidateTags(tags []string) error {
	if len(tags) > 50 {
		return errors.New("too many tags")
	}
	for _, t := range tags {
		if len(t) == 0 {
			return errors.New("tags cannot be empty")
		}
		if len(t) > 64 {
			return errors.New("tag exceeds maximum length")
		}
	}
	return nil
}
