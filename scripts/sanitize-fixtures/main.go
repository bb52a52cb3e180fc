// sanitize-fixtures redacts card data and session material from captured
// HTML and frame-tree fixtures.
//
// Usage:
//
//	go run ./scripts/sanitize-fixtures [-dir=internal/testutil/testdata/fixtures] [-dry-run]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/grez-lucas/payfill/internal/testutil"
)

var sanitizePatterns = []struct {
	Pattern     *regexp.Regexp
	Replacement string
	Description string
}{
	// Session tokens / CSRF tokens / client secrets
	{
		regexp.MustCompile(`(?i)(token|csrf|session|client_secret)["\s:=]+["']?[a-zA-Z0-9_-]{20,}["']?`),
		`$1="REDACTED"`,
		"Token",
	},

	// Cookies in HTML
	{
		regexp.MustCompile(`(?i)document\.cookie\s*=\s*["'][^"']+["']`),
		`document.cookie="REDACTED"`,
		"Cookie",
	},

	// Publishable keys embedded in widget bootstraps
	{
		regexp.MustCompile(`\b(pk|sk|rk)_(live|test)_[A-Za-z0-9]{10,}\b`),
		`${1}_${2}_REDACTED`,
		"API key",
	},

	// Email addresses typed into checkout forms
	{
		regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		"user@example.com",
		"Email",
	},
}

func main() {
	dir := flag.String("dir", filepath.Join("internal", "testutil", "testdata", "fixtures"), "Fixtures directory")
	dryRun := flag.Bool("dry-run", false, "Show what would be changed without modifying files")
	flag.Parse()

	var files []string
	for _, pattern := range []string{"*.html", "*.frames.txt"} {
		matches, err := filepath.Glob(filepath.Join(*dir, pattern))
		if err != nil {
			fmt.Printf("Bad pattern: %v\n", err)
			os.Exit(1)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		fmt.Printf("No fixture files found in %s\n", *dir)
		os.Exit(1)
	}

	fmt.Printf("Sanitizing fixtures in %s\n", *dir)
	if *dryRun {
		fmt.Println("    (DRY RUN - no files will be modified)")
	}
	fmt.Println()

	for _, file := range files {
		sanitizeFile(file, *dryRun)
	}

	fmt.Println()
	fmt.Println("Sanitization complete.")
	if *dryRun {
		fmt.Println("    Run without -dry-run to apply changes")
	}
}

func sanitizeFile(path string, dryRun bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		return
	}

	original := string(content)
	sanitized := testutil.SanitizeText(original)
	var changes []string
	if sanitized != original {
		changes = append(changes, "  - Card data redacted")
	}

	for _, pattern := range sanitizePatterns {
		if matches := pattern.Pattern.FindAllString(sanitized, -1); len(matches) > 0 {
			sanitized = pattern.Pattern.ReplaceAllString(sanitized, pattern.Replacement)
			changes = append(changes, fmt.Sprintf("  - %s: %d matched", pattern.Description, len(matches)))
		}
	}

	filename := filepath.Base(path)
	if len(changes) == 0 {
		fmt.Printf("%s: No sensitive data found\n", filename)
		return
	}

	fmt.Printf("%s: Found sensitive data\n", filename)
	for _, change := range changes {
		fmt.Println(change)
	}

	if !dryRun {
		if err := os.WriteFile(path, []byte(sanitized), 0o644); err != nil {
			fmt.Printf("    Error writing %s: %v\n", path, err)
		} else {
			fmt.Println("    Sanitized and saved")
		}
	}
}
