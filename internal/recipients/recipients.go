// Package recipients turns pasted or uploaded recipient text into validated,
// de-duplicated recipient records.
package recipients

import (
	"bytes"
	"io"
	"regexp"
	"strings"
)

// ReasonInvalidEmail is the only rejection reason Parse produces.
const ReasonInvalidEmail = "Invalid email"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Recipient is one addressee. Email is the identity; comparison is exact and
// case-sensitive.
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
}

// InvalidLine is an input line that was rejected, with the trimmed line text.
type InvalidLine struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of a Parse.
type Result struct {
	Valid   []Recipient   `json:"valid"`
	Invalid []InvalidLine `json:"invalid"`
}

// ValidateEmail reports whether s looks like an address: no whitespace, a
// single @, and a dot somewhere in the domain part.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Parse splits raw text into recipients. Each non-blank line is
// "email,first,last,company"; missing trailing fields are empty and fields
// past the fourth are ignored. Lines with a bad address land in Invalid.
// Duplicate addresses keep the first occurrence.
func Parse(raw string) Result {
	res := Result{
		Valid:   []Recipient{},
		Invalid: []InvalidLine{},
	}
	seen := make(map[string]struct{})

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var fields [4]string
		for i, f := range strings.SplitN(line, ",", 5) {
			if i >= len(fields) {
				break
			}
			fields[i] = strings.TrimSpace(f)
		}

		if !ValidateEmail(fields[0]) {
			res.Invalid = append(res.Invalid, InvalidLine{Line: line, Reason: ReasonInvalidEmail})
			continue
		}
		if _, dup := seen[fields[0]]; dup {
			continue
		}
		seen[fields[0]] = struct{}{}

		res.Valid = append(res.Valid, Recipient{
			Email:     fields[0],
			FirstName: fields[1],
			LastName:  fields[2],
			Company:   fields[3],
		})
	}
	return res
}

// ParseReader reads the whole stream and parses it. A leading UTF-8 BOM, as
// written by spreadsheet exports, is dropped.
func ParseReader(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return Parse(string(data)), nil
}

// Dedupe drops later records whose email was already seen, keeping order.
func Dedupe(list []Recipient) []Recipient {
	out := make([]Recipient, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, r := range list {
		if _, dup := seen[r.Email]; dup {
			continue
		}
		seen[r.Email] = struct{}{}
		out = append(out, r)
	}
	return out
}
