package pmc

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute visible article text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
}

// VisibleText extracts the readable text of a rendered article page as one
// flat string with whitespace runs collapsed. When the page marks its
// content region with <main> or <article>, only that region is read, which
// keeps site chrome out of the result.
func VisibleText(doc []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", err
	}

	region := contentRegion(root)
	if region == nil {
		region = root
	}

	var b strings.Builder
	collectText(region, &b)
	return strings.Join(strings.Fields(b.String()), " "), nil
}

// contentRegion finds the first <main> or <article> element, pre-order.
func contentRegion(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && (n.Data == "main" || n.Data == "article") {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := contentRegion(c); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
