// Package commands implements queryctl's cobra command tree: a thin CLI
// demonstrating the query-expression language's two backends over a
// small seeded dataset.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nielslerches/ddd-scaffold/internal/config"
	"github.com/nielslerches/ddd-scaffold/internal/debug"
)

var debugEnabled bool

var rootCmd = &cobra.Command{
	Use:   "queryctl",
	Short: "Demonstrate the query-expression language over a seeded dataset",
	Long: `queryctl runs the same query-expression predicates against both
the in-memory and relational backends over a small seeded user/giftcard
dataset, to show the two backends agreeing on results.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		enable := debugEnabled
		if cfg, err := config.Load(); err == nil && cfg.Debug {
			enable = true
		}
		debug.Init(enable)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "log compiled clauses and generated SQL to stderr")
}
