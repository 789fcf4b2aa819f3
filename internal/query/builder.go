// Package query composes PubMed Boolean expressions from high-level knobs
// and ships ready-made search strategies for observational
// real-world-data studies.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Options are the knobs Build turns into a Boolean query string.
type Options struct {
	// DataSources and DesignTerms name synonym groups (see the tables in
	// synonyms.go). A name with no group is kept verbatim, so callers can
	// mix their own clauses in.
	DataSources []string
	DesignTerms []string

	// ProximityWithin, when positive, replaces the (sources AND designs)
	// intersection with pairwise proximity clauses requiring a design
	// term within N words of a source term in title or abstract.
	ProximityWithin int

	RestrictEnglish bool

	// StartYear/EndYear bound the publication date; zero means open-ended
	// on that side.
	StartYear int
	EndYear   int

	ExcludeClinicalTrials bool
}

// Build assembles the query. Hyphenated MeSH headings are unquoted since
// PubMed does not phrase-index them, and the known Merativ misspelling is
// corrected.
func Build(opts Options) string {
	sources := normalizeAll(lookup(opts.DataSources, dataSourceSynonyms))
	designs := normalizeAll(lookup(opts.DesignTerms, designSynonyms))

	var core string
	if opts.ProximityWithin > 0 {
		core = "(" + strings.Join(proximityClauses(designs, sources, opts.ProximityWithin), " OR ") + ")"
	} else {
		// one outer pair shields the intersection from the filters below
		core = fmt.Sprintf("( (%s) AND (%s) )",
			strings.Join(sources, " OR "),
			strings.Join(designs, " OR "))
	}

	parts := []string{core}

	if opts.RestrictEnglish {
		parts = append(parts, "english[lang]")
	}

	if opts.StartYear != 0 || opts.EndYear != 0 {
		start, end := opts.StartYear, opts.EndYear
		if start == 0 {
			start = 1800
		}
		if end == 0 {
			end = 3000
		}
		parts = append(parts, fmt.Sprintf(`("%d"[dp] : "%d"[dp])`, start, end))
	}

	if opts.ExcludeClinicalTrials {
		parts = append(parts, "NOT ("+strings.Join(clinicalTrialTerms, " OR ")+")")
	}

	return strings.Join(parts, " AND ")
}

// lookup expands group names through the synonym table, passing unknown
// names through untouched.
func lookup(names []string, table map[string][]string) []string {
	var clauses []string
	for _, name := range names {
		if synonyms, ok := table[name]; ok {
			clauses = append(clauses, synonyms...)
		} else {
			clauses = append(clauses, name)
		}
	}
	return clauses
}

func normalizeAll(clauses []string) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = normalize(c)
	}
	return out
}

// normalize fixes the Merativ misspelling and unquotes fully-quoted
// hyphenated terms, which PubMed refuses to phrase-index.
func normalize(term string) string {
	term = strings.ReplaceAll(term, `"Merativ"`, `"Merative"`)
	if strings.HasPrefix(term, `"`) && strings.HasSuffix(term, `"`) &&
		strings.Contains(term[1:len(term)-1], "-") {
		term = strings.Trim(term, `"`)
	}
	return term
}

// proximityClauses emits one clause per (design, source) pair with the
// field tags stripped, since the proximity operator applies its own.
func proximityClauses(designs, sources []string, within int) []string {
	var clauses []string
	for _, d := range designs {
		for _, s := range sources {
			clauses = append(clauses, fmt.Sprintf(`"%s" %s "%s"[TIAB]`,
				bareTerm(d), strconv.Itoa(within), bareTerm(s)))
		}
	}
	return clauses
}

// bareTerm strips the [FIELD] suffix and surrounding quotes from a clause.
func bareTerm(clause string) string {
	if idx := strings.LastIndex(clause, "["); idx >= 0 {
		clause = clause[:idx]
	}
	return strings.Trim(strings.TrimSpace(clause), `"`)
}
