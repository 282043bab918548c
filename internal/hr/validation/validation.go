// Package validation holds the field rules shared by the CRUD services and
// the CSV row validator.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MaxCompanyName    = 90
	MaxResponsibility = 90
	MaxUserName       = 150
	MaxEmail          = 150
	MinPassword       = 8
	MaxPassword       = 20
	PhoneDigits       = 11
)

// DateLayout is the canonical admission date layout.
const DateLayout = "2006-01-02"

// DisplayDateLayout is the layout employees are rendered with.
const DisplayDateLayout = "02/01/2006"

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

// Text trims s and reports whether it is non-empty and at most max runes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > max {
		return s, false
	}
	return s, true
}

// Date parses an admission date in DateLayout or DisplayDateLayout.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, DisplayDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Digits drops every non-digit character from s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Phone strips s to digits and reports whether exactly PhoneDigits remain.
func Phone(s string) (string, bool) {
	d := Digits(s)
	return d, len(d) == PhoneDigits
}

// Email trims s and checks it is a bare, valid address within MaxEmail.
func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxEmail {
		return s, false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return s, false
	}
	return s, true
}

// Password checks length and the required character classes.
func Password(p string) bool {
	n := utf8.RuneCountInString(p)
	if n < MinPassword || n > MaxPassword {
		return false
	}
	if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
		return false
	}
	return upperPattern.MatchString(p) && digitPattern.MatchString(p) && specialPattern.MatchString(p)
}
