package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"travelplanner/pkg/domain"
)

// passwordEnv is read when --password is not given.
const passwordEnv = "PLANNER_PASSWORD"

func resolvePassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	return "", errors.New("password is required (--password or " + passwordEnv + ")")
}

func newLoginCommand(opts *Options) *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session token",
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			password, err := resolvePassword(creds.Password)
			if err != nil {
				return err
			}
			res, err := s.store.Login(cmd.Context(), domain.Credentials{
				Email:    strings.TrimSpace(creds.Email),
				Password: password,
			})
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Info("logged in", "user_id", res.User.ID())
			return printJSON(cmd, map[string]any{"authenticated": true, "user": res.User})
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password (or "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCommand(opts *Options) *cobra.Command {
	var data domain.SignupData
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an account and persist the session token",
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			password, err := resolvePassword(data.Password)
			if err != nil {
				return err
			}
			res, err := s.store.Signup(cmd.Context(), domain.SignupData{
				Email:    strings.TrimSpace(data.Email),
				Password: password,
				FullName: strings.TrimSpace(data.FullName),
			})
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Info("signed up", "user_id", res.User.ID())
			return printJSON(cmd, map[string]any{"authenticated": true, "user": res.User})
		}),
	}
	cmd.Flags().StringVar(&data.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&data.Password, "password", "", "Account password (or "+passwordEnv+")")
	cmd.Flags().StringVar(&data.FullName, "full-name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session token",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			s.store.Logout()
			return printJSON(cmd, map[string]any{"authenticated": false})
		}),
	}
}
