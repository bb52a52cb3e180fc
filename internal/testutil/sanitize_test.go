package testutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHAR(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Request: HARRequest{
			Method: "POST",
			URL:    "https://api.stripe.com/v1/payment_intents/pi_1/confirm?client_secret=pi_1_secret_abc&expand=x",
			Headers: []HARHeader{
				{Name: "Authorization", Value: "Bearer sk_test_123"},
				{Name: "Accept", Value: "application/json"},
			},
			Body: "card[number]=4242424242424242&card[cvc]=123&card[exp_month]=12&card[exp_year]=34&type=card",
		},
		Response: HARResponse{
			Status:  200,
			Headers: []HARHeader{{Name: "Set-Cookie", Value: "sid=abc"}},
			Content: HARContent{
				MimeType: "application/json",
				Text:     `{"id": "pm_1", "client_secret": "pi_1_secret_abc", "card": {"last4": "4242"}, "note": "4242 4242 4242 4242"}`,
			},
		},
	}}}

	out := SanitizeHAR(har).Entries[0]

	u, err := url.Parse(out.Request.URL)
	require.NoError(t, err)
	assert.Equal(t, redacted, u.Query().Get("client_secret"))
	assert.Equal(t, "x", u.Query().Get("expand"))

	assert.Equal(t, redacted, out.Request.Headers[0].Value)
	assert.Equal(t, "application/json", out.Request.Headers[1].Value)
	assert.Equal(t, redacted, out.Response.Headers[0].Value)

	form, err := url.ParseQuery(out.Request.Body)
	require.NoError(t, err)
	for _, key := range []string{"card[number]", "card[cvc]", "card[exp_month]", "card[exp_year]"} {
		assert.Equal(t, redacted, form.Get(key), key)
	}
	assert.Equal(t, "card", form.Get("type"))

	text := out.Response.Content.Text
	assert.NotContains(t, text, "pi_1_secret_abc")
	assert.Contains(t, text, `"last4": "4242"`)
	assert.False(t, ContainsCardData(text))

	// The input is left untouched.
	assert.Contains(t, har.Entries[0].Request.Body, "4242424242424242")
}

func TestSanitizeHAR_BinaryContentKept(t *testing.T) {
	har := &HARLog{Entries: []HAREntry{{
		Response: HARResponse{Content: HARContent{Text: "iVBORw0KGgo=", Encoding: "base64"}},
	}}}
	assert.Equal(t, "iVBORw0KGgo=", SanitizeHAR(har).Entries[0].Response.Content.Text)
}

func TestSanitizeText(t *testing.T) {
	html := `<input name="cardnumber" value="4242 4242 4242 4242"><input placeholder="1234 1234 1234 1234">`
	out := SanitizeText(html)
	assert.False(t, ContainsCardData(out))
	assert.Contains(t, out, "1234 1234 1234 1234", "numbers failing the checksum are kept")
}
