// Package personalize substitutes {token} placeholders in campaign templates.
package personalize

import (
	"fmt"
	"regexp"

	"github.com/ukaseai/brandlab/internal/recipients"
)

// Token names every recipient gets.
const (
	FirstName      = "first_name"
	LastName       = "last_name"
	Company        = "company"
	UnsubscribeURL = "unsubscribe_url"
)

// Vocabulary is the fixed token set built for each recipient.
var Vocabulary = []string{FirstName, LastName, Company, UnsubscribeURL}

var tokenPattern = regexp.MustCompile(`\{(\w+)\}`)

// Tokens maps token names to values. A key that is present with a nil value
// renders as the empty string; a key that is absent leaves the placeholder
// untouched.
type Tokens map[string]any

// Merge replaces every {name} in template with its value from tokens.
// Substituted values are never rescanned.
func Merge(template string, tokens Tokens) string {
	if template == "" {
		return ""
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(m string) string {
		v, ok := tokens[m[1:len(m)-1]]
		if !ok {
			return m
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// TokensFor builds the full vocabulary for r. Without an unsubscribe URL the
// {unsubscribe_url} placeholder is preserved for a downstream provider to fill.
func TokensFor(r recipients.Recipient, unsubscribeURL string) Tokens {
	if unsubscribeURL == "" {
		unsubscribeURL = "{" + UnsubscribeURL + "}"
	}
	return Tokens{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Company:        r.Company,
		UnsubscribeURL: unsubscribeURL,
	}
}

// Preview renders subject and body for the recipient at index, clamped to the
// end of the list. An empty list returns the templates as written.
func Preview(subject, body string, list []recipients.Recipient, index int) (string, string) {
	if len(list) == 0 {
		return subject, body
	}
	if index >= len(list) {
		index = len(list) - 1
	}
	if index < 0 {
		index = 0
	}
	tokens := TokensFor(list[index], "")
	return Merge(subject, tokens), Merge(body, tokens)
}
