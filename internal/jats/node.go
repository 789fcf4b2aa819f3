package jats

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// node is one element or text node of the parsed document. Text nodes have
// an empty tag; keeping them as children preserves the interleaving of
// character data with inline markup, so paragraph text reads in order.
type node struct {
	tag  string
	text string
	kids []*node
}

// parse builds a node tree from JATS XML bytes.
func parse(doc []byte) (*node, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(doc)))

	root := &node{}
	stack := []*node{root}

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			child := &node{tag: t.Name.Local}
			top.kids = append(top.kids, child)
			stack = append(stack, child)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if text := string(t); text != "" {
				top.kids = append(top.kids, &node{text: text})
			}
		}
	}

	if len(root.kids) == 0 {
		return nil, errEmptyDocument
	}
	// first element child is the document root
	for _, k := range root.kids {
		if k.tag != "" {
			return k, nil
		}
	}
	return nil, errEmptyDocument
}

// innerText concatenates the text nodes beneath n in document order and
// collapses whitespace runs.
func innerText(n *node) string {
	var b strings.Builder
	var walk func(*node)
	walk = func(cur *node) {
		if cur.tag == "" {
			b.WriteString(cur.text)
			return
		}
		for _, k := range cur.kids {
			walk(k)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findFirst returns the first descendant of n (pre-order) with the tag.
func findFirst(n *node, tag string) *node {
	for _, k := range n.kids {
		if k.tag == tag {
			return k
		}
		if found := findFirst(k, tag); found != nil {
			return found
		}
	}
	return nil
}
