// Package validate contains simple input validation helpers.
package validate

import (
	"errors"
	"regexp"
)

// usernameRe enforces a conservative username pattern.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// Username validates a username string for length and allowed characters.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

// Role validates an operator role. The portal knows exactly three.
func Role(s string) error {
	switch s {
	case "admin", "student", "faculty":
		return nil
	}
	return errors.New("role must be admin, student, or faculty")
}
