package conversation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidName accepts any text without an ASCII digit.
func ValidName(name string) bool {
	return !strings.ContainsAny(name, "0123456789")
}

// ValidEmail accepts localpart@domain.tld with no whitespace.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func isGreeting(text string) bool {
	return strings.EqualFold(text, "hi")
}
