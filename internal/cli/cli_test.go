package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/payfill/internal/diag"
	"github.com/grez-lucas/payfill/internal/payform"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "payfill dev (field contract "+payform.ContractVersion+")\n", out)

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dev", got["version"])
	assert.Equal(t, payform.ContractVersion, got["contract_version"])
}

func TestVersion_IgnoresBrokenConfig(t *testing.T) {
	_, err := run(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
}

func TestFill_RequiresTarget(t *testing.T) {
	_, err := run(t, "fill", "--card", "4242424242424242", "--expiry", "12/34", "--cvc", "123")
	assert.ErrorIs(t, err, errNoTarget)

	_, err = run(t, "frames")
	assert.ErrorIs(t, err, errNoTarget)
}

func TestFill_ValidatesValuesBeforeLaunch(t *testing.T) {
	_, err := run(t, "fill", "--url", "https://shop.example/checkout", "--card", "4242424242424242", "--cvc", "123")
	require.ErrorIs(t, err, payform.ErrInvalidValues)
	assert.Contains(t, err.Error(), "expiry")
}

func TestFill_ConfigErrorBeforeLaunch(t *testing.T) {
	_, err := run(t, "fill", "--url", "https://shop.example/checkout",
		"--card", "4242424242424242", "--expiry", "12/34", "--cvc", "123",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestFill_RejectsArgs(t *testing.T) {
	_, err := run(t, "fill", "extra")
	assert.Error(t, err)
}

func TestFill_KeyboardFlagUsage(t *testing.T) {
	cmd, _, err := NewRootCmd().Find([]string{"fill"})
	require.NoError(t, err)
	fl := cmd.Flags().Lookup("keyboard")
	require.NotNil(t, fl)
	assert.Contains(t, fl.Usage, "cdp (re-focus and resend the same key events)")
	assert.Contains(t, fl.Usage, "insert-text")
}

func sampleResult() payform.FillResult {
	return payform.FillResult{
		RunID: "run-1",
		Mode:  payform.ModeSplit,
		Outcomes: map[payform.FieldName]payform.Outcome{
			payform.CardNumber: payform.Succeeded,
			payform.Expiry:     payform.FallbackUsed,
			payform.CVC:        payform.Failed,
		},
		Errors: map[payform.FieldName]error{
			payform.CVC: &payform.FillError{Field: payform.CVC, Operation: "type", Cause: payform.ErrFallbackFailed},
		},
	}
}

func TestWriteReport_Text(t *testing.T) {
	rep := newReport(sampleResult())
	rep.Artifacts = &diag.Artifacts{Screenshot: "captures/fill-run-1.png"}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, rep, false))

	want := "run run-1: mode=split\n" +
		"  card_number  succeeded\n" +
		"  cvc          failed (" + sampleResult().Errors[payform.CVC].Error() + ")\n" +
		"  expiry       fallback_used\n" +
		"  captured captures/fill-run-1.png\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, "failed fields: cvc", rep.summary())
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, newReport(sampleResult()), true))

	var got report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "split", got.Mode)
	assert.Equal(t, "fallback_used", got.Fields["expiry"])
	assert.Contains(t, got.Errors, "cvc")
	assert.Nil(t, got.Artifacts)
}

func TestReportSummary_NotFound(t *testing.T) {
	rep := newReport(payform.FillResult{RunID: "r", Mode: payform.ModeNotFound})
	assert.Equal(t, "no payment widget found", rep.summary())
	assert.Empty(t, rep.Errors)
}
