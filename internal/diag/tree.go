// Package diag holds the diagnostic hooks used when a fill goes wrong: a
// dump of the frame tree with the inputs each frame exposes, card data
// redaction, and page capture.
package diag

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grez-lucas/payfill/internal/browser"
)

// Probe is a named selector list checked in every frame of a dump.
type Probe struct {
	Name      string
	Selectors []string
}

// FrameNode is one document of the frame tree.
type FrameNode struct {
	// Path is "top" for the top document, then the iframe indexes from the
	// top separated by "/".
	Path    string
	Src     string
	Title   string
	Visible bool
	// Matches lists the probes with a visible element in this document.
	Matches  []string
	Inputs   []InputSummary
	Err      string
	Children []FrameNode
}

// DumpFrameTree walks the whole frame tree under doc, hidden frames
// included, down to maxDepth levels of nesting. Errors are recorded on the
// node they happened on and never stop the walk.
func DumpFrameTree(doc browser.Document, probes []Probe, maxDepth int) FrameNode {
	root := FrameNode{Path: "top", Visible: true}
	fillNode(&root, doc, probes, maxDepth)
	return root
}

func fillNode(node *FrameNode, doc browser.Document, probes []Probe, depthLeft int) {
	for _, p := range probes {
		if matches(doc, p.Selectors) {
			node.Matches = append(node.Matches, p.Name)
		}
	}
	if html, err := doc.HTML(); err == nil {
		if inputs, err := SummarizeInputs(html); err == nil {
			node.Inputs = inputs
		}
	}
	if depthLeft <= 0 {
		return
	}
	frames, err := doc.Frames()
	if err != nil {
		node.Err = err.Error()
		return
	}
	for i, fe := range frames {
		child := FrameNode{Path: childPath(node.Path, i)}
		child.Src, _ = fe.Attribute("src")
		child.Title, _ = fe.Attribute("title")
		visible, err := fe.Visible()
		if err != nil {
			child.Err = err.Error()
			node.Children = append(node.Children, child)
			continue
		}
		child.Visible = visible
		content, err := fe.Document()
		if err != nil {
			child.Err = err.Error()
		} else {
			fillNode(&child, content, probes, depthLeft-1)
		}
		node.Children = append(node.Children, child)
	}
}

func childPath(parent string, i int) string {
	if parent == "top" {
		return strconv.Itoa(i)
	}
	return parent + "/" + strconv.Itoa(i)
}

func matches(doc browser.Document, selectors []string) bool {
	for _, sel := range selectors {
		els, err := doc.Query(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if v, err := el.Visible(); err == nil && v {
				return true
			}
		}
	}
	return false
}

// Render writes the tree as an indented outline.
func Render(w io.Writer, root FrameNode) error {
	return render(w, root, 0)
}

func render(w io.Writer, n FrameNode, indent int) error {
	pad := strings.Repeat("  ", indent)
	line := pad + n.Path
	if n.Path != "top" {
		line += fmt.Sprintf(" title=%q src=%q", n.Title, shorten(n.Src, 80))
		if !n.Visible {
			line += " hidden"
		}
	}
	if len(n.Matches) > 0 {
		line += " matches=[" + strings.Join(n.Matches, ",") + "]"
	}
	if n.Err != "" {
		line += " error=" + strconv.Quote(n.Err)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, in := range n.Inputs {
		if _, err := fmt.Fprintf(w, "%s  - %s\n", pad, in); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := render(w, c, indent+1); err != nil {
			return err
		}
	}
	return nil
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
