package crawler

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extractor names accepted by NewExtractor and the --extractor flag.
const (
	ExtractorDOM   = "dom"
	ExtractorToken = "token"
)

// Extractor pulls hyperlinks and visible text out of an HTML document.
//
// Design decision: Parsing sits behind an interface because:
//  1. The DOM backend is forgiving, the tokenizer backend is cheaper on memory
//  2. Processor logic (scope, filters, matching) stays backend-independent
//  3. Tests can check that both backends agree on the same documents
type Extractor interface {
	// ExtractLinks returns every <a href> target resolved against base,
	// in document order. Non-navigational and unparseable hrefs are dropped.
	ExtractLinks(base *url.URL, r io.Reader) ([]*url.URL, error)

	// ExtractText returns the visible text of the document with anchor
	// contents removed and whitespace collapsed to single spaces.
	ExtractText(r io.Reader) (string, error)
}

// NewExtractor returns the Extractor registered under name.
// An empty name selects the DOM backend.
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ExtractorDOM:
		return DOMExtractor{}, nil
	case ExtractorToken:
		return TokenExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtractor, name)
	}
}

// hiddenSelector matches elements whose text never counts as page text.
// Anchors are included because link labels are excluded from matching.
const hiddenSelector = "a, script, style, noscript, template"

// isHidden reports whether text inside the element a is not visible.
func isHidden(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// isBlock reports whether the element a separates words.
// Inline elements (b, span, em) join adjacent text, block elements do not.
func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Body,
		atom.Br, atom.Caption, atom.Dd, atom.Details, atom.Div, atom.Dl,
		atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure, atom.Footer,
		atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Head, atom.Header, atom.Hr, atom.Html, atom.Img, atom.Input,
		atom.Label, atom.Legend, atom.Li, atom.Main, atom.Nav, atom.Ol,
		atom.Option, atom.P, atom.Pre, atom.Section, atom.Select,
		atom.Summary, atom.Table, atom.Tbody, atom.Td, atom.Textarea,
		atom.Tfoot, atom.Th, atom.Thead, atom.Title, atom.Tr, atom.Ul:
		return true
	}
	return false
}

// collapseSpace joins the fields of s with single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DOMExtractor parses the whole document into a tree with goquery.
// It tolerates malformed markup the same way browsers do.
type DOMExtractor struct{}

// ExtractLinks implements Extractor.
func (DOMExtractor) ExtractLinks(base *url.URL, r io.Reader) ([]*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if u, ok := ResolveLink(base, href); ok {
			links = append(links, u)
		}
	})
	return links, nil
}

// ExtractText implements Extractor.
func (DOMExtractor) ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(hiddenSelector).Remove()

	var sb strings.Builder
	for _, n := range doc.Nodes {
		writeText(&sb, n)
	}
	return collapseSpace(sb.String()), nil
}

// writeText appends the text nodes below n to sb, padding block elements
// with spaces so "<p>a</p><p>b</p>" yields two words. Hidden elements must
// already be removed from the tree.
func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte(' ')
	}
}

// TokenExtractor streams the document through the html tokenizer without
// building a tree. Memory use is bounded by the largest token.
type TokenExtractor struct{}

// ExtractLinks implements Extractor.
func (TokenExtractor) ExtractLinks(base *url.URL, r io.Reader) ([]*url.URL, error) {
	var links []*url.URL
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return links, nil
			}
			return links, fmt.Errorf("failed to tokenize HTML: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.A || !hasAttr {
				continue
			}
			if href, ok := tokenAttr(z, "href"); ok {
				if u, ok := ResolveLink(base, href); ok {
					links = append(links, u)
				}
			}
		}
	}
}

// ExtractText implements Extractor.
func (TokenExtractor) ExtractText(r io.Reader) (string, error) {
	var (
		sb       strings.Builder
		inAnchor bool
		hidden   int
	)
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return collapseSpace(sb.String()), nil
			}
			return "", fmt.Errorf("failed to tokenize HTML: %w", z.Err())
		case html.TextToken:
			if !inAnchor && hidden == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.A:
				// The tree builder closes an open anchor when a new one
				// starts, so anchors never nest.
				inAnchor = tt == html.StartTagToken
			case isHidden(a):
				if tt == html.StartTagToken {
					hidden++
				} else if tt == html.EndTagToken && hidden > 0 {
					hidden--
				}
			case isBlock(a):
				sb.WriteByte(' ')
			}
		}
	}
}

// tokenAttr returns the value of the attribute key on the current tag.
func tokenAttr(z *html.Tokenizer, key string) (string, bool) {
	for {
		k, v, more := z.TagAttr()
		if string(k) == key {
			return string(v), true
		}
		if !more {
			return "", false
		}
	}
}
