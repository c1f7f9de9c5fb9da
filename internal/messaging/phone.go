package messaging

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrNoDigits is returned when a phone number contains no digits at all.
var ErrNoDigits = errors.New("messaging: phone number has no digits")

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// Digits strips everything but 0-9 from value.
func Digits(value string) string {
	return nonDigitRe.ReplaceAllString(value, "")
}

// WhatsAppLink builds a wa.me deep link that opens a chat with phone and
// body pre-filled. The text is escaped the way encodeURIComponent does it
// so spaces arrive as spaces rather than plus signs.
func WhatsAppLink(phone, body string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", ErrNoDigits
	}
	text := strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}
