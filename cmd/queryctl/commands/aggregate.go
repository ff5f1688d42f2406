package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nielslerches/ddd-scaffold/cmd/queryctl/internal/ui"
	"github.com/nielslerches/ddd-scaffold/internal/config"
	"github.com/nielslerches/ddd-scaffold/internal/demo"
	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/memory"
	"github.com/nielslerches/ddd-scaffold/query/relational"
)

var (
	aggregateBackend string
	aggregateKind    string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate the demo users' loyalty points",
	Long: `Evaluates one of count, sum, mean, median, or collect over the
"points" field of the demo user dataset, against either query backend —
useful for seeing the two backends agree (logical/physical parity).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("queryctl: load config: %w", err)
		}

		agg, err := aggFor(aggregateKind)
		if err != nil {
			return err
		}

		ui.PrintHeader("queryctl aggregate", fmt.Sprintf("backend=%s kind=%s", aggregateBackend, aggregateKind))

		ctx := cmd.Context()
		var result interface{}
		switch aggregateBackend {
		case "memory":
			qs := memory.FromSlice(memory.NewCompiler(nil), demo.Users())
			result, err = qs.Aggregate(ctx, agg)
			if err != nil {
				return err
			}

		case "relational":
			session, err2 := seedRelationalDemo(relationalConfig{Provider: cfg.Provider, DSN: cfg.DSN})
			if err2 != nil {
				return err2
			}
			defer session.Close()

			qs := relational.New[relationalUser](session, userModel{}, scanRelationalUser)
			result, err = qs.Aggregate(ctx, agg)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("queryctl: unknown backend %q (want memory or relational)", aggregateBackend)
		}

		ui.PrintSummary("%s(points) = %v", aggregateKind, result)
		return nil
	},
}

func aggFor(kind string) (ast.Agg, error) {
	switch kind {
	case "count":
		return ast.Count("points"), nil
	case "sum":
		return ast.Sum("points"), nil
	case "mean":
		return ast.Mean("points"), nil
	case "median":
		return ast.Median("points"), nil
	case "collect":
		return ast.Collect("points"), nil
	default:
		return ast.Agg{}, fmt.Errorf("queryctl: unknown aggregation %q", kind)
	}
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateBackend, "backend", "memory", "backend to run the aggregation against (memory, relational)")
	aggregateCmd.Flags().StringVar(&aggregateKind, "kind", "count", "aggregation kind (count, sum, mean, median, collect)")
	rootCmd.AddCommand(aggregateCmd)
}
