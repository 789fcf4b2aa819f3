// Package jats extracts a linear, context-tagged chunk sequence from JATS
// full-text XML, the structured format PMC serves for open-access articles.
package jats

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/OHDSI/searchpubmed/internal/model"
)

var errEmptyDocument = errors.New("empty document")

// UnsupportedDocumentError means the input parsed as XML but is not a JATS
// article with a body, e.g. a PubmedArticleSet fed in by mistake. The guard
// keeps the extractor from silently mis-chunking an unrelated XML dialect.
type UnsupportedDocumentError struct {
	Root   string
	Reason string
}

func (e *UnsupportedDocumentError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("unsupported document: %s (root <%s>)", e.Reason, e.Root)
	}
	return "unsupported document: " + e.Reason
}

// Options configures the extraction.
type Options struct {
	// MinLength drops paragraph and table-cell chunks shorter than this
	// after whitespace normalization. Values below 1 mean 1, so empty
	// text is never emitted.
	MinLength int

	// IncludeTableCells emits one chunk per table cell. When false,
	// tables are skipped entirely.
	IncludeTableCells bool
}

// ExtractChunks walks the article depth-first in document order and emits
// (text, context) chunks: section titles (tagged with the context of their
// parent section), paragraphs and optionally table cells. The result is
// deterministic: the same input and options always produce the same
// sequence.
func ExtractChunks(doc []byte, opts Options) ([]model.Chunk, error) {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}

	root, err := parse(doc)
	if err != nil {
		return nil, &UnsupportedDocumentError{Reason: "not well-formed XML: " + err.Error()}
	}
	// efetch wraps the article in <pmc-articleset>; accept both forms
	article := root
	if article.tag != "article" {
		article = findFirst(root, "article")
	}
	if article == nil {
		return nil, &UnsupportedDocumentError{Root: root.tag, Reason: "expected <article> root"}
	}
	body := findFirst(article, "body")
	if body == nil {
		return nil, &UnsupportedDocumentError{Root: root.tag, Reason: "no <body> section container"}
	}

	e := &extractor{opts: opts}

	// the article title from the front matter leads the sequence, with no
	// enclosing section context
	if front := findFirst(root, "front"); front != nil {
		if title := findFirst(front, "article-title"); title != nil {
			e.emit(innerText(title), model.RoleTitle, false)
		}
	}

	e.walk(body)
	return e.chunks, nil
}

// extractor carries the section-title stack through the traversal. The
// stack top is the innermost enclosing section.
type extractor struct {
	opts   Options
	stack  []string
	chunks []model.Chunk
}

func (e *extractor) walk(n *node) {
	for _, k := range n.kids {
		switch k.tag {
		case "sec":
			e.walkSection(k)
		case "p":
			e.emit(innerText(k), model.RoleParagraph, true)
		case "table-wrap", "table":
			if e.opts.IncludeTableCells {
				e.emitCells(k)
			}
		case "":
			// bare character data between elements carries no structure
		default:
			e.walk(k)
		}
	}
}

// walkSection emits the section title under the *parent* context, then
// pushes the title for the section's own children and pops it on the way
// out.
func (e *extractor) walkSection(sec *node) {
	title := ""
	for _, k := range sec.kids {
		if k.tag == "title" {
			title = innerText(k)
			break
		}
	}

	pushed := false
	if title != "" {
		e.emit(title, model.RoleTitle, false)
		e.stack = append(e.stack, title)
		pushed = true
	}

	for _, k := range sec.kids {
		if k.tag == "title" {
			continue
		}
		e.walk(&node{kids: []*node{k}})
	}

	if pushed {
		e.stack = e.stack[:len(e.stack)-1]
	}
}

func (e *extractor) emitCells(table *node) {
	var walk func(*node)
	walk = func(n *node) {
		for _, k := range n.kids {
			if k.tag == "td" || k.tag == "th" {
				e.emit(innerText(k), model.RoleTableCell, true)
				continue
			}
			walk(k)
		}
	}
	walk(table)
}

// emit appends a chunk unless the text is empty (or, when filtered, below
// the minimum length).
func (e *extractor) emit(text string, role model.ChunkRole, filtered bool) {
	if text == "" {
		return
	}
	if filtered && utf8.RuneCountInString(text) < e.opts.MinLength {
		return
	}
	chunk := model.Chunk{Text: text, Role: role}
	if len(e.stack) > 0 {
		chunk.Section = e.stack[len(e.stack)-1]
	}
	if len(e.stack) > 1 {
		chunk.ParentSection = e.stack[len(e.stack)-2]
	}
	e.chunks = append(e.chunks, chunk)
}
