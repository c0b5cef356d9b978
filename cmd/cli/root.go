package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:3000/api/v1"

type globalOptions struct {
	apiURL string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Command line client for the library API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("MINILIBRARY_API", defaultAPIURL), "API base URL (env MINILIBRARY_API)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (defaults to the saved login token)")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(),
		newMeCmd(opts),
		newHealthCmd(opts),
		newBooksCmd(opts),
		newAICmd(opts),
		newAdminCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
