// Package dom produces the page data attached to autotracked interactions:
// a text description of the interacted element and a redacted, gzip
// compressed, base64 encoded copy of the document.
//
// Nothing here mutates the document it is given. Capture copies the tree
// while redacting, so the live page is never touched.
package dom

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoDocument is returned when there is no document to capture.
var ErrNoDocument = errors.New("no document available")

// Source supplies the current document of the host page.
type Source interface {
	Document() (*html.Node, error)
}

var (
	// DefaultRemovedTags are dropped together with their content.
	DefaultRemovedTags = []string{"script", "style", "svg", "img", "picture", "video", "audio", "iframe"}
	// DefaultAllowedAttrs are the only attributes kept on remaining elements.
	DefaultAllowedAttrs = []string{"alt", "title", "aria-label", "role", "name", "id", "placeholder", "type"}
)

// DescribeTarget walks from target up through its ancestor elements and
// returns the first non-empty text content. It returns nil when no element
// on the path has text.
func DescribeTarget(target *html.Node) *string {
	for n := target; n != nil; n = n.Parent {
		if text := textContent(n); text != "" {
			return &text
		}
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return nil
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return n.Data
	case html.ElementNode:
	default:
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

// Capturer redacts documents with a fixed tag deny-list and attribute
// allow-list.
type Capturer struct {
	removed map[string]struct{}
	allowed map[string]struct{}
}

// NewCapturer builds a Capturer. Tag and attribute names are lower case.
func NewCapturer(removedTags, allowedAttrs []string) *Capturer {
	c := &Capturer{
		removed: make(map[string]struct{}, len(removedTags)),
		allowed: make(map[string]struct{}, len(allowedAttrs)),
	}
	for _, t := range removedTags {
		c.removed[strings.ToLower(t)] = struct{}{}
	}
	for _, a := range allowedAttrs {
		c.allowed[strings.ToLower(a)] = struct{}{}
	}
	return c
}

var defaultCapturer = NewCapturer(DefaultRemovedTags, DefaultAllowedAttrs)

// Capture redacts doc with the default rules.
func Capture(doc *html.Node) (string, error) {
	return defaultCapturer.Capture(doc)
}

// CaptureMarkup parses markup and captures it with the default rules.
func CaptureMarkup(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	return Capture(doc)
}

// Capture returns the redacted document element of doc, rendered as HTML,
// gzip compressed and base64 encoded. Identical input yields identical bytes.
func (c *Capturer) Capture(doc *html.Node) (string, error) {
	root := documentElement(doc)
	if root == nil {
		return "", ErrNoDocument
	}
	redacted := c.copyRedacted(root)
	if redacted == nil {
		return "", ErrNoDocument
	}

	var markup bytes.Buffer
	if err := html.Render(&markup, redacted); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return compress(markup.Bytes())
}

func documentElement(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == html.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// copyRedacted returns a detached copy of n without removed elements,
// comments and disallowed attributes. It returns nil for dropped nodes.
func (c *Capturer) copyRedacted(n *html.Node) *html.Node {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return nil
	case html.ElementNode:
		if _, drop := c.removed[n.Data]; drop {
			return nil
		}
	}

	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		if _, ok := c.allowed[a.Key]; ok {
			out.Attr = append(out.Attr, a)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if cp := c.copyRedacted(child); cp != nil {
			out.AppendChild(cp)
		}
	}
	return out
}

func compress(markup []byte) (string, error) {
	var buf bytes.Buffer
	// The zero gzip header carries no timestamp, which keeps output stable.
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(markup); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses the encoding applied by Capture and returns the markup.
func Decode(snapshot string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(snapshot)
	if err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()
	markup, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("decompress snapshot: %w", err)
	}
	return string(markup), nil
}
