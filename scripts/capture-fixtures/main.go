// capture-fixtures opens a visible browser and saves checkout pages as test
// fixtures: a screenshot, the flattened DOM with iframes and shadow roots
// inlined, and the frame tree annotated with field matches.
//
// Usage:
//
//	go run ./scripts/capture-fixtures -url=https://shop.example/checkout
//
// Card data is redacted from the saved HTML, but review the output before
// committing and run sanitize-fixtures over it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
	"github.com/grez-lucas/payfill/internal/logging"
	"github.com/grez-lucas/payfill/internal/payform"
)

// PageCapture is one step the user walks the browser through.
type PageCapture struct {
	Name         string
	Instructions string
}

var capturePages = []PageCapture{
	{Name: "checkout_empty", Instructions: "Open the checkout page and wait for the card widget"},
	{Name: "checkout_filled", Instructions: "Type a test card (4242 4242 4242 4242) into the widget by hand"},
	{Name: "checkout_error", Instructions: "Enter an invalid expiry so the widget shows its error state (or skip)"},
	{Name: "checkout_split", Instructions: "Open a checkout that renders one frame per field (or skip)"},
}

func main() {
	startURL := flag.String("url", "", "Checkout page to open first (optional)")
	outputDir := flag.String("output", filepath.Join("internal", "testutil", "testdata", "fixtures"), "Output directory")
	chromeBin := flag.String("chrome", "", "Chrome binary (default: let Rod find one)")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: "warn", Format: "console"})
	defer func() { _ = log.Sync() }()

	fmt.Println("================================================================")
	fmt.Println("  CHECKOUT FIXTURE CAPTURE")
	fmt.Printf("  Output: %s\n", *outputDir)
	fmt.Println("================================================================")
	fmt.Println()

	filler, err := payform.New(payform.DefaultConfig())
	if err != nil {
		fmt.Printf("Error building probes: %v\n", err)
		os.Exit(1)
	}
	probes := filler.Probes()

	inst, err := browser.Launch(browser.LaunchConfig{Bin: *chromeBin, Headless: false, Stealth: true}, log)
	if err != nil {
		fmt.Printf("Error launching browser: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = inst.Close() }()

	page, err := inst.NewPage()
	if err != nil {
		fmt.Printf("Error opening tab: %v\n", err)
		os.Exit(1)
	}
	if *startURL != "" {
		if err := page.Navigate(*startURL); err != nil {
			fmt.Printf("Error navigating: %v\n", err)
		}
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Instructions:")
	fmt.Println("   - A browser window has opened")
	fmt.Println("   - Press ENTER after completing each step")
	fmt.Println("   - Type 'skip' to skip a page, 'quit' to exit")
	fmt.Println()

	for _, capture := range capturePages {
		fmt.Println("----------------------------------------------------------------")
		fmt.Printf("Capturing: %s\n", capture.Name)
		fmt.Printf("  -> %s\n", capture.Instructions)
		fmt.Print("  Press ENTER when ready (or 'skip'/'quit'): ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "quit" {
			fmt.Println("\nExiting...")
			break
		}
		if input == "skip" {
			fmt.Printf("  Skipped %s\n\n", capture.Name)
			continue
		}

		browser.WaitForIFrames(page, 5*time.Second)
		time.Sleep(500 * time.Millisecond)

		art, err := diag.Capture(page, *outputDir, capture.Name, probes, payform.DefaultConfig().MaxDepth, log)
		if err != nil {
			fmt.Printf("  Error capturing: %v\n\n", err)
			continue
		}
		for _, p := range []string{art.Screenshot, art.DOM, art.Frames} {
			if p != "" {
				fmt.Printf("  Saved: %s\n", p)
			}
		}
		if info, err := page.Info(); err == nil {
			fmt.Printf("  URL: %s\n\n", info.URL)
		} else {
			log.Debug("page info", zap.Error(err))
		}
	}

	fmt.Println("================================================================")
	fmt.Println("Capture complete.")
	fmt.Println()
	fmt.Println("IMPORTANT: check the fixtures for card data before committing:")
	fmt.Println("   go run ./scripts/sanitize-fixtures -dir=" + *outputDir)
	fmt.Println("================================================================")
}
