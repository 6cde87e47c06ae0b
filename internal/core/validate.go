package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxSubjectLength = 300
	maxBodyLength    = 10000
)

var (
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	httpLink   = regexp.MustCompile(`(?i)^https?://`)
)

// ValidationError lists the fields of an EmailData that look wrong.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid email data: %s", strings.Join(e.Problems, "; "))
}

// ErrInvalidEmailData matches any *ValidationError with errors.Is.
var ErrInvalidEmailData = errors.New("invalid email data")

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidEmailData }

// ValidateEmailData checks the shape of extracted input. The result is
// advisory: scoring accepts any EmailData.
func ValidateEmailData(e EmailData) error {
	var problems []string

	subject := strings.TrimSpace(e.Subject)
	if subject == "" {
		problems = append(problems, "subject is empty")
	} else if len(e.Subject) > maxSubjectLength {
		problems = append(problems, fmt.Sprintf("subject longer than %d bytes", maxSubjectLength))
	}

	if strings.TrimSpace(e.Body) == "" {
		problems = append(problems, "body is empty")
	} else if len(e.Body) > maxBodyLength {
		problems = append(problems, fmt.Sprintf("body longer than %d bytes", maxBodyLength))
	}

	if !emailShape.MatchString(e.Sender) {
		problems = append(problems, fmt.Sprintf("sender %q is not an email address", e.Sender))
	}

	for _, link := range e.Links {
		if !httpLink.MatchString(link) {
			problems = append(problems, fmt.Sprintf("link %q is not http(s)", link))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
