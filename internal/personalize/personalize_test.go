package personalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukaseai/brandlab/internal/recipients"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		template string
		tokens   Tokens
		want     string
	}{
		{"simple", "Hi {first_name}!", Tokens{"first_name": "Ann"}, "Hi Ann!"},
		{"nil value", "Hi {first_name}!", Tokens{"first_name": nil}, "Hi !"},
		{"absent key", "Bye {unknown}", Tokens{}, "Bye {unknown}"},
		{"empty template", "", Tokens{"first_name": "Ann"}, ""},
		{"repeated", "{a}{a}", Tokens{"a": "x"}, "xx"},
		{"number coerced", "You have {n} items", Tokens{"n": 3}, "You have 3 items"},
		{"no recursion", "{a}", Tokens{"a": "{b}", "b": "nope"}, "{b}"},
		{"non word chars untouched", "{first name} {}", Tokens{"first name": "x"}, "{first name} {}"},
		{"nil map", "Hi {first_name}", nil, "Hi {first_name}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.template, tt.tokens))
		})
	}
}

func TestTokensFor(t *testing.T) {
	r := recipients.Recipient{Email: "a@x.com", FirstName: "Ann", Company: "Acme"}

	tokens := TokensFor(r, "")
	assert.Len(t, tokens, len(Vocabulary))
	assert.Equal(t, "Ann", tokens[FirstName])
	assert.Equal(t, "", tokens[LastName])
	assert.Equal(t, "{unsubscribe_url}", tokens[UnsubscribeURL])
	assert.Equal(t, "Ann  at Acme {unsubscribe_url}",
		Merge("{first_name} {last_name} at {company} {unsubscribe_url}", tokens))

	tokens = TokensFor(r, "https://u.example/x")
	assert.Equal(t, "https://u.example/x", tokens[UnsubscribeURL])
}

func TestPreview(t *testing.T) {
	list := []recipients.Recipient{
		{Email: "a@x.com", FirstName: "Ann"},
		{Email: "b@x.com", FirstName: "Bo"},
	}

	s, b := Preview("Hi {first_name}", "<p>{company}</p>", list, 0)
	assert.Equal(t, "Hi Ann", s)
	assert.Equal(t, "<p></p>", b)

	s, _ = Preview("Hi {first_name}", "", list, 9)
	assert.Equal(t, "Hi Bo", s)

	s, b = Preview("Hi {first_name}", "body", nil, 0)
	assert.Equal(t, "Hi {first_name}", s)
	assert.Equal(t, "body", b)
}
