package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nielslerches/ddd-scaffold/cmd/queryctl/internal/ui"
	"github.com/nielslerches/ddd-scaffold/internal/config"
	"github.com/nielslerches/ddd-scaffold/internal/demo"
	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/relational"
)

var queryBackend string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List users eligible for the welcome giftcard",
	Long: `Runs the giftcard-eligibility predicate: users with enough
loyalty points who have not already redeemed a giftcard for the
configured reason.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("queryctl: load config: %w", err)
		}

		ui.PrintHeader("queryctl query", fmt.Sprintf("backend=%s", queryBackend))

		ctx := cmd.Context()
		var rows [][]string

		switch queryBackend {
		case "memory":
			service := demo.NewUserService(demo.Users(), demo.DefaultEligibility())
			eligible, err := service.UsersEligibleForGiftcard(ctx)
			if err != nil {
				return err
			}
			for _, e := range eligible {
				rows = append(rows, []string{e.User.Name, fmt.Sprintf("%d", e.User.Points), fmt.Sprintf("%d", e.GiftcardValue)})
			}

		case "relational":
			session, err := seedRelationalDemo(relationalConfig{Provider: cfg.Provider, DSN: cfg.DSN})
			if err != nil {
				return err
			}
			defer session.Close()

			eligibility := demo.DefaultEligibility()
			qs := relational.New[relationalUser](session, userModel{}, scanRelationalUser)
			users, err := qs.
				Filter(ast.Field("points").Ge(eligibility.MinPoints)).
				Exclude(ast.Has("giftcards").Where(ast.Field("reason").Eq(eligibility.Reason))).
				Slice(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				rows = append(rows, []string{u.Name, fmt.Sprintf("%d", u.Points), fmt.Sprintf("%d", eligibility.GiftcardValue)})
			}

		default:
			return fmt.Errorf("queryctl: unknown backend %q (want memory or relational)", queryBackend)
		}

		ui.PrintTable([]string{"name", "points", "giftcard_value"}, rows)
		ui.PrintSummary("%d user(s) eligible", len(rows))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryBackend, "backend", "memory", "backend to run the query against (memory, relational)")
	rootCmd.AddCommand(queryCmd)
}
