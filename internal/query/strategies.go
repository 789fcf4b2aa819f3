package query

// Strategy is a named, ready-made Options preset.
type Strategy struct {
	Name        string
	Description string
	Options     Options
}

// Strategies lists the canned presets in ascending specificity order.
// Strategy names are stable; the CLI exposes them verbatim.
var Strategies = []Strategy{
	{
		Name:        "strategy1",
		Description: "controlled vocabulary only",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group"},
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
	{
		Name:        "strategy2",
		Description: "controlled vocabulary plus named databases, maximum sensitivity",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld", "named"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group", "cohort", "longitudinal"},
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
	{
		Name:        "strategy3",
		Description: "maximum sensitivity with proximity coupling within 5 words",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld", "named"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group", "cohort", "longitudinal"},
			ProximityWithin:       5,
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
	{
		Name:        "strategy4",
		Description: "named databases with tighter design-term proximity",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld", "named"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group"},
			ProximityWithin:       5,
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
	{
		Name:        "strategy5",
		Description: "high specificity, controlled vocabulary",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group"},
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
	{
		Name:        "strategy6",
		Description: "highest specificity with proximity coupling within 5 words",
		Options: Options{
			DataSources:           []string{"ehr", "claims", "realworld"},
			DesignTerms:           []string{"observational", "retrospective", "secondary", "research_group"},
			ProximityWithin:       5,
			RestrictEnglish:       true,
			StartYear:             2010,
			ExcludeClinicalTrials: true,
		},
	},
}

// StrategyByName finds a preset; ok is false for unknown names.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}
