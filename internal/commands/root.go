// Package commands implements the partsdesk admin CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/partsdesk/internal/app"
	"github.com/bobmcallan/partsdesk/internal/common"
)

// session opens the App on first use so commands like --help never touch storage.
type session struct {
	configPath string
	open       func(configPath string) (*app.App, error)
	app        *app.App
}

func (s *session) App() (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.open(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("opening shop data: %w", err)
	}
	s.app = a
	return a, nil
}

func (s *session) Close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

// Execute runs the CLI against the configured storage.
func Execute() error {
	s := &session{open: app.NewApp}
	defer s.Close()
	return newRootCommand(s).Execute()
}

// newRootCommand creates the root CLI command with all subcommands registered.
func newRootCommand(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "partsdesk",
		Short: "Parts and battery shop administration",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)",
			common.GetVersion(), common.GetGitCommit(), common.GetBuild()),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&s.configPath, "config", "", "config file (default: PARTSDESK_CONFIG or partsdesk.toml)")

	rootCmd.AddCommand(newUserCommand(s))
	rootCmd.AddCommand(newProductsCommand(s))
	rootCmd.AddCommand(newReportCommand(s))

	return rootCmd
}
