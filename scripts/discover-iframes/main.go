// discover-iframes opens a visible browser and prints the iframe tree of each
// checkout page you navigate to, marking which frames match the card field
// selectors. Use the output to update the field contract after a widget
// release moves its inputs.
//
// Usage:
//
//	go run ./scripts/discover-iframes [-url=https://shop.example/checkout] [-depth=4]
//
// After you press ENTER, the current page is inspected and the report is
// printed; repeat for as many pages as needed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
	"github.com/grez-lucas/payfill/internal/logging"
	"github.com/grez-lucas/payfill/internal/payform"
)

func main() {
	startURL := flag.String("url", "", "Checkout page to open first (optional)")
	depth := flag.Int("depth", payform.DefaultConfig().MaxDepth+1, "Iframe nesting to descend")
	chromeBin := flag.String("chrome", "", "Chrome binary (default: let Rod find one)")
	flag.Parse()

	log := logging.New(logging.Config{Level: "warn", Format: "console"})
	defer func() { _ = log.Sync() }()

	filler, err := payform.New(payform.DefaultConfig())
	if err != nil {
		fmt.Printf("Error building probes: %v\n", err)
		os.Exit(1)
	}
	probes := filler.Probes()

	fmt.Println("================================================================")
	fmt.Println("  IFRAME DISCOVERY")
	fmt.Println("================================================================")
	fmt.Println()
	fmt.Println("This tool prints the iframe tree on each page and reports")
	fmt.Println("which frame matches which card field.")
	fmt.Println()

	inst, err := browser.Launch(browser.LaunchConfig{Bin: *chromeBin, Headless: false, Stealth: true}, log)
	if err != nil {
		fmt.Printf("Error launching browser: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = inst.Close() }()

	page, err := inst.NewPage()
	if err != nil {
		fmt.Printf("Error opening tab: %v\n", err)
		return
	}
	if *startURL != "" {
		if err := page.Navigate(*startURL); err != nil {
			fmt.Printf("Error navigating: %v\n", err)
		}
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("----------------------------------------------------------------")
		fmt.Print("Navigate to a checkout page, then press ENTER (or 'quit'): ")

		input, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(strings.ToLower(input)) == "quit" {
			break
		}

		browser.WaitForIFrames(page, 5*time.Second)
		time.Sleep(500 * time.Millisecond)

		if info, err := page.Info(); err == nil {
			fmt.Printf("\n  URL: %s\n\n", info.URL)
		}

		root := diag.DumpFrameTree(browser.NewDocument(page), probes, *depth)
		if err := diag.Render(os.Stdout, root); err != nil {
			fmt.Printf("Error rendering tree: %v\n", err)
		}
		printMatches(root)
		fmt.Println()
	}

	fmt.Println("================================================================")
	fmt.Println("  Discovery complete.")
	fmt.Println("  Copy new selectors into internal/config/defaults.yaml and")
	fmt.Println("  payform.DefaultFields, then bump contract_version.")
	fmt.Println("================================================================")
}

// printMatches lists, per field, the frame paths whose document matched.
func printMatches(root diag.FrameNode) {
	found := map[string][]string{}
	var walk func(n diag.FrameNode)
	walk = func(n diag.FrameNode) {
		for _, m := range n.Matches {
			found[m] = append(found[m], n.Path)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	fmt.Println()
	for _, name := range []payform.FieldName{payform.CardNumber, payform.Expiry, payform.CVC, payform.PostalCode} {
		paths := found[string(name)]
		if len(paths) == 0 {
			fmt.Printf("  MISSING %-12s\n", name)
			continue
		}
		fmt.Printf("  FOUND   %-12s in %s\n", name, strings.Join(paths, ", "))
	}
}
