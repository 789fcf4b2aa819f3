package model

import "time"

// Metadata is one PubMed bibliographic record. Fields the remote record
// lacks stay at their zero values; a record is only unusable without a PMID.
type Metadata struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Journal  string   `json:"journal,omitempty"`
	Year     int      `json:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Authors  []string `json:"authors,omitempty"`
}

// ChunkRole tags the structural role of a text chunk.
type ChunkRole string

const (
	RoleTitle     ChunkRole = "title"
	RoleParagraph ChunkRole = "paragraph"
	RoleTableCell ChunkRole = "table_cell"
)

// Chunk is one unit of extracted full text plus the section context it was
// found in. Section is the innermost enclosing section title, ParentSection
// the one above it; both are empty for front-matter chunks.
type Chunk struct {
	Text          string    `json:"text"`
	Section       string    `json:"section,omitempty"`
	ParentSection string    `json:"parent_section,omitempty"`
	Role          ChunkRole `json:"role"`
}

// FullTextStatus records how (or why not) full text was obtained for a row.
type FullTextStatus string

const (
	// FullTextXML means structured JATS XML was retrieved and chunked.
	FullTextXML FullTextStatus = "xml"
	// FullTextHTML means only the rendered page was available; its visible
	// text is carried as a single chunk.
	FullTextHTML FullTextStatus = "html"
	// FullTextUnmapped means the PMID has no PMCID, so no full text exists.
	FullTextUnmapped FullTextStatus = "unmapped"
	// FullTextNotFound means the PMCID resolved to no document (404).
	FullTextNotFound FullTextStatus = "not_found"
	// FullTextFetchError means retrieval failed after retries.
	FullTextFetchError FullTextStatus = "fetch_error"
	// FullTextEmpty means the store returned no usable content.
	FullTextEmpty FullTextStatus = "empty"
)

// Row is the per-article unit the pipeline emits. PMID is always set;
// PMCID and Chunks may be empty when full text was unavailable.
type Row struct {
	PMID           string         `json:"pmid"`
	PMCID          string         `json:"pmcid,omitempty"`
	Metadata       Metadata       `json:"metadata"`
	FullTextStatus FullTextStatus `json:"full_text_status"`
	Chunks         []Chunk        `json:"chunks,omitempty"`
}

// Summary counts how the requested id set degraded on its way to rows.
// The pipeline reports shrinkage here instead of raising.
type Summary struct {
	Found        int `json:"found"`         // PMIDs returned by the search
	Mapped       int `json:"mapped"`        // PMIDs with a PMCID
	WithMetadata int `json:"with_metadata"` // PMIDs with a usable metadata record
	FullTextXML  int `json:"full_text_xml"`
	FullTextHTML int `json:"full_text_html"`
	Unavailable  int `json:"unavailable"` // attempted PMCIDs with no usable content
}

// Result is the complete outcome of one pipeline invocation.
type Result struct {
	Query     string    `json:"query"`
	FetchedAt time.Time `json:"fetched_at"`
	Rows      []Row     `json:"rows"`
	Summary   Summary   `json:"summary"`

	// LLMSummary is an optional model-written overview of the corpus.
	// It is additive output and never feeds back into the rows.
	LLMSummary string `json:"llm_summary,omitempty"`
}
