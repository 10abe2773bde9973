package cli

import (
	"github.com/spf13/cobra"
)

func newFavoritesCommand(opts *Options) *cobra.Command {
	return newGroupCommand("favorites", "List, add and remove favorite plans",
		&cobra.Command{
			Use:   "list",
			Short: "List your favorites",
			Args:  cobra.NoArgs,
			RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
				favs, err := s.store.FetchFavorites(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"favorites": favs, "count": len(favs)})
			}),
		},
		&cobra.Command{
			Use:   "add <plan-id>",
			Short: "Favorite a public plan",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
				fav, err := s.store.AddToFavorites(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"favorite": fav})
			}),
		},
		&cobra.Command{
			Use:   "remove <favorite-id>",
			Short: "Remove a favorite",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
				if err := s.store.RemoveFromFavorites(cmd.Context(), args[0]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"removed": args[0]})
			}),
		},
	)
}

func newSyncCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch plans and favorites together",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if err := s.store.Sync(cmd.Context()); err != nil {
				return err
			}
			snap := s.store.Snapshot()
			return printJSON(cmd, map[string]any{"plans": snap.Plans, "favorites": snap.Favorites})
		}),
	}
}
