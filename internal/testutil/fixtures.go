package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Dir returns the testdata directory of this package.
func Dir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "testdata")
}

// RecordingPath returns the path of a recorded checkout.
func RecordingPath(name string) string {
	return filepath.Join(Dir(), "recordings", name+".har.json")
}

// LoadRecording loads a recorded checkout and fails the test if it cannot.
func LoadRecording(t *testing.T, name string) *HARLog {
	t.Helper()
	return MustLoadHAR(t, RecordingPath(name))
}

// LoadFixture reads an HTML fixture.
func LoadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(Dir(), "fixtures", name+".html")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return string(data)
}
