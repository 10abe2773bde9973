package cli

import (
	"github.com/spf13/cobra"

	"travelplanner/pkg/domain"
)

func newPlansCommand(opts *Options) *cobra.Command {
	return newGroupCommand("plans", "List, create and browse travel plans",
		newPlansListCommand(opts),
		newPlansCreateCommand(opts),
		&cobra.Command{
			Use:   "show <plan-id>",
			Short: "Show one plan",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
				plan, err := s.store.FetchPlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"plan": plan})
			}),
		},
		&cobra.Command{
			Use:   "delete <plan-id>",
			Short: "Delete one of your plans",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
				if err := s.store.DeletePlan(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"deleted": args[0]})
			}),
		},
		&cobra.Command{
			Use:   "public",
			Short: "List public plans, most liked first",
			Args:  cobra.NoArgs,
			RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
				plans, err := s.store.FetchPublicPlans(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"plans": plans, "count": len(plans)})
			}),
		},
		&cobra.Command{
			Use:   "like <plan-id>",
			Short: "Like a public plan",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
				likes, err := s.store.LikePlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"plan_id": args[0], "likes": likes})
			}),
		},
	)
}

func newPlansListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your plans",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			plans, err := s.store.FetchPlans(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"plans": plans, "count": len(plans)})
		}),
	}
}

func newPlansCreateCommand(opts *Options) *cobra.Command {
	var (
		input domain.PlanInput
		prefs map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if len(prefs) > 0 {
				input.Preferences = make(map[string]any, len(prefs))
				for k, v := range prefs {
					input.Preferences[k] = v
				}
			}
			plan, err := s.store.CreatePlan(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"plan": plan})
		}),
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "Plan title")
	cmd.Flags().StringVar(&input.Destination, "destination", "", "Destination")
	cmd.Flags().StringVar(&input.StartDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&input.EndDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&input.Budget, "budget", 0, "Budget")
	cmd.Flags().BoolVar(&input.IsPublic, "public", false, "Make the plan public")
	cmd.Flags().StringToStringVar(&prefs, "pref", nil, "Preference key=value (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

// newGroupCommand builds a cobra.Command that groups subcommands.
func newGroupCommand(use, short string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}
	if len(subcommands) > 0 {
		cmd.AddCommand(subcommands...)
	}
	return cmd
}
