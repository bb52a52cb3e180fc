package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeInputs(t *testing.T) {
	html := `<html><body><form>
		<input type="hidden" name="csrf" value="abc">
		<input class=" CardNumberField-input " name="cardnumber" autocomplete="cc-number"
			data-elements-stable-field-name="cardNumber" placeholder="1234 1234 1234 1234" value="">
		<div data-captured-iframe="true" data-iframe-title="Secure CVC input frame">
			<input name="cvc" aria-label="Security code" value="12" data-live-value-length="3">
		</div>
	</form></body></html>`

	got, err := SummarizeInputs(html)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, InputSummary{
		Type:         "text",
		Name:         "cardnumber",
		Autocomplete: "cc-number",
		StableName:   "cardNumber",
		Class:        "CardNumberField-input",
		Placeholder:  "1234 1234 1234 1234",
	}, got[0])
	assert.Equal(t, 3, got[1].ValueLen, "live length wins over the value attribute")
	assert.Equal(t, "Security code", got[1].AriaLabel)
}

func TestInputSummary_String(t *testing.T) {
	s := InputSummary{Type: "tel", Name: "cardnumber", ValueLen: 19}
	assert.Equal(t, `input type="tel" name="cardnumber" len=19`, s.String())
}
