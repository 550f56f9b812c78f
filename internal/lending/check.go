package lending

import (
	"fmt"
	"regexp"
	"time"
)

// dateLayout is the dd.mm.yyyy form users type into the front end.
const dateLayout = "02.01.2006"

var datePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// ParseDate converts a dd.mm.yyyy string into a time.Time.
func ParseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("date %q does not match dd.mm.yyyy", value)
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a valid calendar date: %w", value, err)
	}
	return t, nil
}

// IsPastDate reports whether the calendar day of t is before today.
func IsPastDate(t time.Time) bool {
	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return t.Before(today)
}

// EmailRule validates visitor emails against the organizational domain
// pattern from configuration.
type EmailRule struct {
	re *regexp.Regexp
}

// NewEmailRule compiles the configured pattern.
func NewEmailRule(pattern string) (*EmailRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid email pattern %q: %w", pattern, err)
	}
	return &EmailRule{re: re}, nil
}

// Valid reports whether email matches the organizational pattern.
func (r *EmailRule) Valid(email string) bool {
	return r.re.MatchString(email)
}
