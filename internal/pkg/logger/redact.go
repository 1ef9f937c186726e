package logger

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// addressPattern finds addresses embedded anywhere in a value, including
// transport error messages that echo the recipient back.
var addressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail keeps the first two characters of the local part and the
// domain: "john.doe@example.com" becomes "jo***@example.com". Local parts of
// two characters or fewer are fully masked.
func RedactEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if utf8.RuneCountInString(local) <= 2 {
		return "***@" + domain
	}
	_, w1 := utf8.DecodeRuneInString(local)
	_, w2 := utf8.DecodeRuneInString(local[w1:])
	return local[:w1+w2] + "***@" + domain
}

func redactAddresses(val string) string {
	if !strings.Contains(val, "@") {
		return val
	}
	return addressPattern.ReplaceAllStringFunc(val, RedactEmail)
}
