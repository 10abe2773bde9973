package cli

import (
	"github.com/spf13/cobra"

	"travelplanner/internal/router"
)

type staticAuth bool

func (a staticAuth) IsAuthenticated() bool { return bool(a) }

func newRouteCommand(opts *Options) *cobra.Command {
	var assumeAuth bool
	cmd := &cobra.Command{
		Use:   "route <path>",
		Short: "Resolve a path and show where the access guard sends it",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			var auth router.AuthSource = s.store
			if cmd.Flags().Changed("authenticated") {
				auth = staticAuth(assumeAuth)
			}
			nav := router.New(auth, LoggerFromContext(cmd.Context())).Navigate(cmd.Context(), args[0])
			return printJSON(cmd, map[string]any{
				"requested": nav.Requested.Path,
				"view":      nav.Final.Route.Name,
				"path":      nav.Final.Path,
				"params":    nav.Final.Params,
				"outcome":   nav.Decision.Outcome.String(),
			})
		}),
	}
	cmd.Flags().BoolVar(&assumeAuth, "authenticated", false, "Evaluate the guard as if signed in (or out)")
	return cmd
}

func newHealthCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API health endpoint",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			h, err := s.api.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, h)
		}),
	}
}
