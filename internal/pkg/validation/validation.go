package validation

import (
	"regexp"
)

// isValidEmail matches /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Workspace key: 2-10 chars, uppercase letter first, then uppercase letters or digits (e.g. "PM", "CRM2").
var workspaceKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidWorkspaceKey(key string) bool {
	return workspaceKeyRe.MatchString(key)
}
