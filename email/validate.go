package email

import (
	"strings"

	"crmmail/models"
)

// Validate checks a candidate configuration and returns every problem found.
// An empty result means the settings may be probed.
func Validate(s models.EmailSettings) []string {
	problems := []string{}

	if !strings.Contains(s.Email, "@") {
		problems = append(problems, "Invalid email address")
	}
	if strings.TrimSpace(s.IMAP.Host) == "" {
		problems = append(problems, "IMAP host is required")
	}
	if strings.TrimSpace(s.IMAP.User) == "" {
		problems = append(problems, "IMAP username is required")
	}
	if strings.TrimSpace(s.IMAP.Password) == "" {
		problems = append(problems, "IMAP password is required")
	}
	if strings.TrimSpace(s.SMTP.Host) == "" {
		problems = append(problems, "SMTP host is required")
	}
	if strings.TrimSpace(s.SMTP.User) == "" {
		problems = append(problems, "SMTP username is required")
	}
	if strings.TrimSpace(s.SMTP.Password) == "" {
		problems = append(problems, "SMTP password is required")
	}
	if !validPort(s.IMAP.Port) {
		problems = append(problems, "Invalid IMAP port number")
	}
	if !validPort(s.SMTP.Port) {
		problems = append(problems, "Invalid SMTP port number")
	}

	return problems
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}
