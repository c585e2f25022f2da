package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// captureJS serializes the rendered page into one static document without
// touching the live DOM. Shadow roots and same-origin iframes are inlined in
// marker divs. Elements the browser does not render get data-width="0" so a
// static tree sees the same visibility the live page had. Scripts and styles
// are dropped and inline handlers keep their name but lose their code.
const captureJS = `() => {
	const MAX_DEPTH = 200;
	const SKIP = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'LINK', 'META', 'TEMPLATE']);
	const VOID = new Set(['area', 'base', 'br', 'col', 'embed', 'hr', 'img', 'input', 'source', 'track', 'wbr']);
	const counts = { shadowRoots: 0, frames: 0, hidden: 0 };

	function esc(s) {
		return s.replace(/&/g, '&amp;').replace(/</g, '&lt;').replace(/>/g, '&gt;');
	}
	function escAttr(s) {
		return esc(s).replace(/"/g, '&quot;');
	}

	function rendered(el) {
		const view = el.ownerDocument.defaultView;
		if (!view) return true;
		const style = view.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}

	function children(node, depth) {
		let out = '';
		for (const child of node.childNodes) out += serialize(child, depth + 1);
		return out;
	}

	function frameBody(iframe, depth) {
		let doc = null;
		try {
			doc = iframe.contentDocument || (iframe.contentWindow && iframe.contentWindow.document);
		} catch (e) {}
		const src = escAttr(iframe.src || '');
		if (!doc || !doc.body) {
			return '<div data-captured-iframe="true" data-iframe-src="' + src + '" data-iframe-error="not accessible"></div>';
		}
		counts.frames++;
		return '<div data-captured-iframe="true" data-iframe-src="' + src + '">' + children(doc.body, depth) + '</div>';
	}

	function serialize(node, depth) {
		if (depth > MAX_DEPTH) return '';
		if (node.nodeType === Node.TEXT_NODE) return esc(node.textContent);
		if (node.nodeType !== Node.ELEMENT_NODE || SKIP.has(node.tagName)) return '';

		const tag = node.tagName.toLowerCase();
		if (tag === 'iframe') return frameBody(node, depth);

		let open = '<' + tag;
		for (const a of node.attributes) {
			const value = a.name.startsWith('on') ? '' : a.value;
			open += ' ' + a.name + '="' + escAttr(value) + '"';
		}
		if (!rendered(node)) {
			counts.hidden++;
			open += ' data-width="0"';
		}
		open += '>';
		if (VOID.has(tag)) return open;

		let inner = '';
		if (node.shadowRoot) {
			counts.shadowRoots++;
			inner += '<div data-shadow-root="true" data-shadow-host="' + tag + '">' +
				children(node.shadowRoot, depth) + '</div>';
		}
		inner += children(node, depth);
		return open + inner + '</' + tag + '>';
	}

	const body = document.body ? serialize(document.body, 0) : '<body></body>';
	return JSON.stringify({
		html: '<!DOCTYPE html>\n<html><head><title>' + esc(document.title || '') + '</title></head>' + body + '</html>',
		shadowRoots: counts.shadowRoots,
		frames: counts.frames,
		hidden: counts.hidden,
	});
}`

// Capture is a static copy of a rendered page, suitable as a test fixture
// for ui.HTMLTree.
type Capture struct {
	HTML        string `json:"html"`
	ShadowRoots int    `json:"shadowRoots"`
	Frames      int    `json:"frames"`
	Hidden      int    `json:"hidden"`
}

// CapturePage serializes page with shadow roots and frames inlined.
func CapturePage(ctx context.Context, page *rod.Page) (*Capture, error) {
	res, err := page.Context(ctx).Eval(captureJS)
	if err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}

	var c Capture
	if err := json.Unmarshal([]byte(res.Value.Str()), &c); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	return &c, nil
}
