// sanitize-har removes card data, credentials and session material from HAR
// recordings before they are committed.
//
// Usage:
//
//	go run ./scripts/sanitize-har -scenario=unified_checkout
//	go run ./scripts/sanitize-har -input=recording.har.json -output=sanitized.har.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grez-lucas/payfill/internal/testutil"
)

func main() {
	scenario := flag.String("scenario", "", "Recording name under internal/testutil/testdata/recordings")
	inputPath := flag.String("input", "", "Input HAR file path")
	outputPath := flag.String("output", "", "Output HAR file path (defaults to input path)")
	dryRun := flag.Bool("dry-run", false, "Show what would be redacted without modifying")
	flag.Parse()

	var inPath, outPath string
	switch {
	case *scenario != "":
		inPath = testutil.RecordingPath(*scenario)
		outPath = inPath
	case *inputPath != "":
		inPath = *inputPath
		outPath = *inputPath
		if *outputPath != "" {
			outPath = *outputPath
		}
	default:
		printUsage()
		os.Exit(1)
	}

	if _, err := os.Stat(inPath); os.IsNotExist(err) {
		fmt.Printf("Error: Input file not found: %s\n", inPath)
		os.Exit(1)
	}

	fmt.Printf("Loading HAR file: %s\n", inPath)

	// Both DevTools exports and the simplified format are accepted.
	har, err := testutil.LoadHAR(inPath)
	if err != nil {
		fmt.Printf("Error loading HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d entries\n", len(har.Entries))

	sanitized := testutil.SanitizeHAR(har)
	fmt.Printf("Redacted %d sensitive values\n", countRedactions(har, sanitized))

	if leaks := remainingCardData(sanitized); leaks > 0 {
		fmt.Printf("WARNING: %d entries still contain a valid card number; inspect them by hand\n", leaks)
	}

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes written.")
		printRedactionSummary(har, sanitized)
		return
	}

	if err := testutil.SaveHAR(outPath, sanitized); err != nil {
		fmt.Printf("Error saving HAR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sanitized HAR saved to: %s\n", outPath)
}

func printUsage() {
	fmt.Println("sanitize-har - Remove card data and secrets from HAR files before committing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  go run ./scripts/sanitize-har -scenario=unified_checkout")
	fmt.Println("  go run ./scripts/sanitize-har -input=recording.har.json")
	fmt.Println("  go run ./scripts/sanitize-har -input=in.har.json -output=out.har.json")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -scenario  Recording name (unified_checkout, split_checkout, ...)")
	fmt.Println("  -input     Input HAR file path")
	fmt.Println("  -output    Output HAR file path (defaults to input)")
	fmt.Println("  -dry-run   Show redactions without modifying file")
}

// entryDiff lists what sanitization changed in one entry.
func entryDiff(orig, san testutil.HAREntry) []string {
	var changes []string
	if orig.Request.URL != san.Request.URL {
		changes = append(changes, "URL query parameters redacted")
	}
	for j, h := range orig.Request.Headers {
		if j < len(san.Request.Headers) && h.Value != san.Request.Headers[j].Value {
			changes = append(changes, fmt.Sprintf("Request header '%s' redacted", h.Name))
		}
	}
	if orig.Request.Body != san.Request.Body {
		changes = append(changes, "Request body redacted")
	}
	for j, h := range orig.Response.Headers {
		if j < len(san.Response.Headers) && h.Value != san.Response.Headers[j].Value {
			changes = append(changes, fmt.Sprintf("Response header '%s' redacted", h.Name))
		}
	}
	if orig.Response.Content.Text != san.Response.Content.Text {
		changes = append(changes, "Response body redacted")
	}
	return changes
}

func countRedactions(original, sanitized *testutil.HARLog) int {
	count := 0
	for i := range original.Entries {
		if i >= len(sanitized.Entries) {
			break
		}
		count += len(entryDiff(original.Entries[i], sanitized.Entries[i]))
	}
	return count
}

func remainingCardData(har *testutil.HARLog) int {
	n := 0
	for _, e := range har.Entries {
		if testutil.ContainsCardData(e.Request.URL) ||
			testutil.ContainsCardData(e.Request.Body) ||
			testutil.ContainsCardData(e.Response.Content.Text) {
			n++
		}
	}
	return n
}

func printRedactionSummary(original, sanitized *testutil.HARLog) {
	fmt.Println("\nRedaction Summary:")
	fmt.Println("==================")

	for i := range original.Entries {
		if i >= len(sanitized.Entries) {
			break
		}
		orig := original.Entries[i]
		changes := entryDiff(orig, sanitized.Entries[i])
		if len(changes) == 0 {
			continue
		}
		fmt.Printf("\nEntry %d: %s %s\n", i+1, orig.Request.Method, truncateURL(orig.Request.URL))
		for _, c := range changes {
			fmt.Printf("  - %s\n", c)
		}
	}
}

func truncateURL(url string) string {
	if len(url) > 80 {
		return url[:77] + "..."
	}
	return url
}
