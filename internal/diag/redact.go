package diag

import (
	"regexp"
	"strings"
)

const masked = "[REDACTED]"

var (
	// 13 to 19 digits, optionally grouped with spaces or dashes.
	panPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

	// key=value or "key": "value" pairs whose key names a security code,
	// including form-encoded card[cvc] and card%5Bcvc%5D.
	cvcPattern = regexp.MustCompile(`(?i)([\w\[\]%-]*(?:cvc|cvv|csc|security_?code)[\w\[\]%-]*"?\s*[:=]\s*"?)\d{3,4}`)

	expiryPattern = regexp.MustCompile(`(?i)([\w\[\]%-]*exp(?:iry|iration|_month|_year|-date|_date)[\w\[\]%-]*"?\s*[:=]\s*"?)\d[\d/ ]*\d`)
)

// RedactCardData masks card numbers, security codes and expiry dates in
// text: HTML, form bodies, JSON or log lines. Card numbers are recognized by
// their Luhn checksum and keep their last four digits.
func RedactCardData(s string) string {
	s = panPattern.ReplaceAllStringFunc(s, func(m string) string {
		digits := onlyDigits(m)
		if !luhn(digits) {
			return m
		}
		return masked + digits[len(digits)-4:]
	})
	s = cvcPattern.ReplaceAllString(s, "${1}"+masked)
	s = expiryPattern.ReplaceAllString(s, "${1}"+masked)
	return s
}

// ContainsCardNumber reports whether s holds anything that looks like a
// valid card number.
func ContainsCardNumber(s string) bool {
	for _, m := range panPattern.FindAllString(s, -1) {
		if luhn(onlyDigits(m)) {
			return true
		}
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhn(digits string) bool {
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
