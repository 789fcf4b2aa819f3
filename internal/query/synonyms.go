package query

// dataSourceSynonyms expands a data-source group name into MeSH headings
// and free-text title/abstract clauses.
var dataSourceSynonyms = map[string][]string{
	"ehr": {
		`"Electronic Health Records"[MeSH]`,
		`"Medical Records Systems, Computerized"[MeSH]`,
		`"Routinely Collected Health Data"[MeSH]`,
		`"EHR"[TIAB]`,
		`"EMR"[TIAB]`,
		`"electronic health record"[TIAB]`,
		`"electronic medical record"[TIAB]`,
	},
	"claims": {
		`"Insurance Claim Review"[MeSH]`,
		`"Insurance Claim Reporting"[MeSH]`,
		`"claims data"[TIAB]`,
		`"administrative data"[TIAB]`,
		`"insurance claims"[TIAB]`,
	},
	"registry": {
		`"Registries"[MeSH]`,
		`registry[TIAB]`,
		`registry-based[TIAB]`,
	},
	"realworld": {
		`"Databases, Factual"[MeSH]`,
		`"real-world data"[TIAB]`,
		`"real-world evidence"[TIAB]`,
		`"real world data"[TIAB]`,
		`"real world evidence"[TIAB]`,
	},
	"named": {
		`"SEER"[TIAB]`,
		`"NHANES"[TIAB]`,
		`"CPRD"[TIAB]`,
		`"MarketScan"[TIAB]`,
		`"Optum"[TIAB]`,
		`"Truven"[TIAB]`,
		`"IQVIA"[TIAB]`,
		`"PharMetrics"[TIAB]`,
		`"Symphony Health"[TIAB]`,
		`"Premier Healthcare"[TIAB]`,
		`"Medicare"[TIAB]`,
		`"Medicaid"[TIAB]`,
		`"All-Payer"[TIAB]`,
		`"All Payer"[TIAB]`,
		`"TriNetX"[TIAB]`,
		`"Cerner"[TIAB]`,
		`"Komodo"[TIAB]`,
		`"Kaiser"[TIAB]`,
		`"Explorys"[TIAB]`,
		`"The Health Improvement Network"[TIAB]`,
		`"Vizient"[TIAB]`,
		`"HealthVerity"[TIAB]`,
		`"Datavant"[TIAB]`,
		`"Merative"[TIAB]`,
	},
}

// designSynonyms expands a study-design group name the same way.
var designSynonyms = map[string][]string{
	"observational": {
		`"Observational Study"[PT]`,
		`"Observational Studies as Topic"[MeSH]`,
		`observational[TIAB]`,
		`"observational study"[TIAB]`,
		`observational stud*[TIAB]`,
	},
	"retrospective": {
		`"Retrospective Studies"[MeSH]`,
		`retrospective[TIAB]`,
		`"retrospective study"[TIAB]`,
	},
	"secondary": {
		`"Secondary Data Analysis"[PT]`,
		`"secondary analysis"[TIAB]`,
		`"secondary data analysis"[TIAB]`,
	},
	"cohort": {
		`"Cohort Studies"[MeSH]`,
		`cohort[TIAB]`,
		`"cohort study"[TIAB]`,
		`cohort stud*[TIAB]`,
	},
	"case_control": {
		`"Case-Control Studies"[MeSH]`,
		`"case-control"[TIAB]`,
		`"case control"[TIAB]`,
	},
	"cross_sectional": {
		`"Cross-Sectional Studies"[MeSH]`,
		`"cross-sectional"[TIAB]`,
		`"cross sectional"[TIAB]`,
	},
	"research_group": {
		`"Health Services Research"[MeSH]`,
		`"Outcome Assessment, Health Care"[MeSH]`,
		`"Comparative Effectiveness Research"[MeSH]`,
	},
	"prospective": {
		`"Prospective Studies"[MeSH]`,
		`prospective[TIAB]`,
	},
	"longitudinal": {
		`"Longitudinal Studies"[MeSH]`,
		`"longitudinal study"[TIAB]`,
	},
}

// clinicalTrialTerms is the NOT-block applied when trials are excluded.
var clinicalTrialTerms = []string{
	`"Clinical Trials as Topic"[MeSH]`,
	`"Controlled Clinical Trials as Topic"[MeSH]`,
	`"Randomized Controlled Trial"[PT]`,
	`"Clinical Trial"[PT]`,
}
