package verification

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "list of strings",
			body: `{"errors":["invalid from address"]}`,
			want: []string{"invalid from address"},
		},
		{
			name: "sendgrid objects",
			body: `{"errors":[{"message":"The from address does not match a verified Sender Identity.","field":"from","help":null}]}`,
			want: []string{"from: The from address does not match a verified Sender Identity."},
		},
		{
			name: "field already mentioned",
			body: `{"errors":[{"message":"from is required","field":"from"}]}`,
			want: []string{"from is required"},
		},
		{
			name: "resend message",
			body: `{"statusCode":422,"name":"validation_error","message":"Invalid ` + "`to`" + ` field."}`,
			want: []string{"Invalid `to` field."},
		},
		{
			name: "postmark message",
			body: `{"ErrorCode":300,"Message":"Invalid email request"}`,
			want: []string{"Invalid email request"},
		},
		{
			name: "error string",
			body: `{"error":"unauthorized"}`,
			want: []string{"unauthorized"},
		},
		{
			name: "error object",
			body: `{"error":{"message":"quota exceeded"}}`,
			want: []string{"quota exceeded"},
		},
		{
			name: "leading whitespace",
			body: "\n  {\"errors\":[\"a\",\"b\"]}",
			want: []string{"a", "b"},
		},
		{name: "not json", body: "Internal Server Error"},
		{name: "json array", body: `["nope"]`},
		{name: "empty", body: ""},
		{name: "empty errors", body: `{"errors":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ParseErrorList([]byte(tt.body)))
		})
	}
}

func TestEncodeJSON_KeepsLinksVerbatim(t *testing.T) {
	t.Parallel()

	link := "https://app.example.com/callback?token=abc123&next=<home>"
	data, err := EncodeJSON(map[string]string{"url": link})
	require.NoError(t, err)
	require.Equal(t, `{"url":"https://app.example.com/callback?token=abc123&next=<home>"}`, string(data))
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	BearerAuth(h, "key")
	require.Equal(t, "Bearer key", h.Get("Authorization"))
}
