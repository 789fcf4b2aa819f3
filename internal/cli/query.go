package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OHDSI/searchpubmed/internal/query"
)

var queryList bool

var queryCmd = &cobra.Command{
	Use:   "query [strategy]",
	Short: "Print the Boolean query a strategy expands to",
	Long: `Query shows the PubMed Boolean expression a named strategy builds,
so it can be inspected, tweaked or pasted into the PubMed web UI.

Examples:
  searchpubmed query --list
  searchpubmed query strategy3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryList, "list", false, "list available strategies")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryList || len(args) == 0 {
		for _, s := range query.Strategies {
			fmt.Printf("%-10s  %s\n", s.Name, s.Description)
		}
		return nil
	}

	s, ok := query.StrategyByName(args[0])
	if !ok {
		return fmt.Errorf("unknown strategy %q", args[0])
	}
	fmt.Println(query.Build(s.Options))
	return nil
}
