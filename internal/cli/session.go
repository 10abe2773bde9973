package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"travelplanner/internal/apiclient"
	"travelplanner/internal/config"
	"travelplanner/internal/store"
	"travelplanner/internal/tokenstore"
)

// session is the per-command wiring of API client, token storage and store.
type session struct {
	cfg     config.FileConfig
	api     *apiclient.Client
	storage tokenstore.Storage
	store   *store.Store
}

func openSession(cmd *cobra.Command, opts *Options) (*session, error) {
	timeout, err := config.ParseAPITimeout(opts.cfg.APITimeout)
	if err != nil {
		return nil, err
	}
	storage, err := tokenstore.Open(opts.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open token storage: %w", err)
	}
	api := apiclient.NewClient(opts.cfg.APIBaseURL, timeout)
	st, err := store.New(cmd.Context(), store.Config{
		API:     api,
		Storage: storage,
		Logger:  LoggerFromContext(cmd.Context()),
	})
	if err != nil {
		closeStorage(storage)
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &session{cfg: opts.cfg, api: api, storage: storage, store: st}, nil
}

func (s *session) Close() {
	closeStorage(s.storage)
}

func closeStorage(storage tokenstore.Storage) {
	if c, ok := storage.(io.Closer); ok {
		_ = c.Close()
	}
}

// withSession opens a session for the command and closes it afterwards.
func withSession(opts *Options, run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return run(cmd, args, s)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
