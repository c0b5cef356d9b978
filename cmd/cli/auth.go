package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type devLoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var sub, email, name, role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for later commands",
		Long: `Without flags, prompts for an issuer token and stores it.
With --sub, requests a development token from the server (dev auth must be enabled).
A token passed with --token is stored as is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var token string
			switch {
			case opts.token != "":
				token = opts.token
			case sub != "":
				if email == "" {
					email = sub + "@library.local"
				}
				if name == "" {
					name = sub
				}
				var res devLoginResponse
				client := newAPIClient(&globalOptions{apiURL: opts.apiURL})
				err := client.do(cmd.Context(), http.MethodPost, "/auth/dev-login", map[string]string{
					"sub":   sub,
					"email": email,
					"name":  name,
					"role":  strings.ToUpper(role),
				}, &res)
				if err != nil {
					return err
				}
				token = res.AccessToken
				fmt.Fprintf(out, "✓ Dev token issued for %s (%s), expires in %ds\n", sub, strings.ToUpper(role), res.ExpiresIn)
			default:
				var err error
				token, err = promptToken(cmd.InOrStdin(), out)
				if err != nil {
					return err
				}
			}

			if token == "" {
				return fmt.Errorf("no token provided")
			}
			if err := saveToken(token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(out, "✓ Token saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&sub, "sub", "", "subject for a development token")
	cmd.Flags().StringVar(&email, "email", "", "email for a development token (default <sub>@library.local)")
	cmd.Flags().StringVar(&name, "name", "", "display name for a development token (default <sub>)")
	cmd.Flags().StringVar(&role, "role", "MEMBER", "role for a development token: ADMIN, LIBRARIAN or MEMBER")
	return cmd
}

// promptToken reads a token with echo disabled when stdin is a terminal.
func promptToken(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Paste bearer token: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := removeToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

func newMeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var me map[string]any
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/me", nil, &me); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
}

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health map[string]any
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/health", nil, &health); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), health)
		},
	}
}
