// Package pubmed is a client for the NCBI E-utilities API: esearch for
// free-text search, elink for PMID→PMCID cross-referencing and efetch for
// bibliographic metadata.
//
// The E-utilities are documented at https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult is the response from esearch.fcgi: PMIDs in relevance order.
type ESearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDList  IDList   `xml:"IdList"`
}

// IDList holds the matched PMIDs.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ELinkResult is the response from elink.fcgi. With one id parameter per
// input PMID the service answers with one LinkSet per PMID, so the source
// of each mapping stays identifiable.
type ELinkResult struct {
	XMLName  xml.Name  `xml:"eLinkResult"`
	LinkSets []LinkSet `xml:"LinkSet"`
}

// LinkSet maps one source id to its targets in the linked database.
type LinkSet struct {
	IDList     IDList      `xml:"IdList"`
	LinkSetDBs []LinkSetDB `xml:"LinkSetDb"`
}

// LinkSetDB groups links per target database. A PMID without PMC full text
// simply has no LinkSetDb with DbTo "pmc".
type LinkSetDB struct {
	DbTo     string `xml:"DbTo"`
	LinkName string `xml:"LinkName"`
	Links    []Link `xml:"Link"`
}

// Link is a single target id.
type Link struct {
	ID string `xml:"Id"`
}

// PubmedArticleSet is the response from efetch.fcgi with db=pubmed.
// Only the substructures the metadata extraction reads are modeled;
// anything else in the record is skipped by the decoder.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle is a single bibliographic record.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
}

// MedlineCitation carries the core citation data.
type MedlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article Article `xml:"Article"`
}

// Article holds title, journal, abstract and authors.
type Article struct {
	Journal      Journal     `xml:"Journal"`
	ArticleTitle string      `xml:"ArticleTitle"`
	Abstract     *Abstract   `xml:"Abstract"`
	AuthorList   *AuthorList `xml:"AuthorList"`
}

// Journal holds the journal title and issue date.
type Journal struct {
	Title        string       `xml:"Title"`
	JournalIssue JournalIssue `xml:"JournalIssue"`
}

// JournalIssue holds the publication date.
type JournalIssue struct {
	PubDate PubDate `xml:"PubDate"`
}

// PubDate is either a structured Year or a free-form MedlineDate
// ("2020 Jan-Feb", "2019-2020").
type PubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

// Abstract may carry several labeled sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
}

// AbstractText is one abstract section; Label is set for structured
// abstracts (Background, Methods, ...).
type AbstractText struct {
	Label string `xml:"Label,attr"`
	Value string `xml:",chardata"`
}

// AuthorList holds the authors in citation order.
type AuthorList struct {
	Authors []Author `xml:"Author"`
}

// Author is a personal or collective author.
type Author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}
