package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// flattenJS serializes the document with open shadow roots and same-origin
// iframe documents inlined, without touching the live DOM: it works on a
// deep clone so the widget keeps running after a diagnostic capture.
//
// Shadow content is emitted as <div data-shadow-root="true">, frame content
// as <div data-captured-iframe="true" data-iframe-src=... data-iframe-title=...>.
// Cross-origin frames cannot be read from the page; they are emitted with a
// data-iframe-error attribute and must be dumped through their own frame
// context instead.
const flattenJS = `() => {
	const MAX_DEPTH = 50;
	let shadowCount = 0;
	let iframeCount = 0;

	function copyInto(target, source, depth) {
		for (const child of Array.from(source.childNodes)) {
			target.appendChild(cloneNode(child, target.ownerDocument, depth + 1));
		}
	}

	function cloneNode(node, doc, depth) {
		if (node.nodeType !== Node.ELEMENT_NODE || depth > MAX_DEPTH) {
			return doc.importNode(node, false);
		}

		if (node.tagName === 'IFRAME') {
			return inlineFrame(node, doc, depth);
		}

		const copy = doc.importNode(node, false);
		if (node.tagName === 'INPUT') {
			copy.setAttribute('data-live-value-length', String((node.value || '').length));
		}
		copyInto(copy, node, depth);

		if (node.shadowRoot) {
			const container = doc.createElement('div');
			container.setAttribute('data-shadow-root', 'true');
			container.setAttribute('data-shadow-host', node.tagName.toLowerCase());
			copyInto(container, node.shadowRoot, depth);
			copy.appendChild(container);
			shadowCount++;
		}
		return copy;
	}

	function inlineFrame(iframe, doc, depth) {
		const container = doc.createElement('div');
		container.setAttribute('data-captured-iframe', 'true');
		container.setAttribute('data-iframe-src', iframe.src || '');
		container.setAttribute('data-iframe-title', iframe.title || '');
		container.setAttribute('data-iframe-name', iframe.name || '');
		try {
			const frameDoc = iframe.contentDocument;
			if (!frameDoc || !frameDoc.body) {
				container.setAttribute('data-iframe-error', 'no contentDocument available');
				return container;
			}
			copyInto(container, frameDoc.body, depth);
			iframeCount++;
		} catch (e) {
			container.setAttribute('data-iframe-error', e.message);
		}
		return container;
	}

	const root = cloneNode(document.documentElement, document, 0);
	return JSON.stringify({
		html: root.outerHTML,
		shadowCount: shadowCount,
		iframeCount: iframeCount
	});
}`

// Flattened is a serialized document with shadow roots and readable frames
// inlined.
type Flattened struct {
	HTML        string `json:"html"`
	ShadowCount int    `json:"shadowCount"`
	IframeCount int    `json:"iframeCount"`
}

// FlattenDocument serializes the page with open shadow roots and
// same-origin iframes inlined. When the script cannot run (CSP, detached
// frame) it falls back to the plain page HTML with zero counts.
func FlattenDocument(page *rod.Page) (*Flattened, error) {
	res, evalErr := page.Eval(flattenJS)
	if evalErr == nil {
		var out Flattened
		if err := json.Unmarshal([]byte(res.Value.Str()), &out); err == nil {
			return &out, nil
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: flatten failed and fallback HTML failed: %w", err)
	}
	return &Flattened{HTML: html}, nil
}
