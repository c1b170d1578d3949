package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login USERNAME|EMAIL",
		Short: "Sign in and store the session",
		Long: `Sign in with a username or email address. The password is read from
--password or, when that is empty, from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd.InOrStdin(), password)
			if err != nil {
				return err
			}
			if err := c.session.Login(cmd.Context(), args[0], secret); err != nil {
				return err
			}
			id := c.session.Identity()
			writeLine(cmd.OutOrStdout(), "Logged in as %s (%s)", id.Username, strings.Join(id.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func (c *cli) signupCmd() *cobra.Command {
	var req authsdk.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readSecret(cmd.InOrStdin(), req.Password)
			if err != nil {
				return err
			}
			req.Password = secret
			if err := c.session.Signup(cmd.Context(), req); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Welcome, %s", c.session.Identity().Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the server and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c.session.Init(ctx)
			c.session.Logout(ctx)
			writeLine(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := c.requireSession(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if local {
				writeLine(out, "%s <%s>", id.Username, id.Email)
				writeLine(out, "roles:   %s", strings.Join(id.Roles, ", "))
				writeLine(out, "expires: %s", id.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
				return nil
			}

			me, err := apiclient.DoJSON[authsdk.MeResponse](ctx, c.api, apiclient.Request{
				Method: http.MethodGet,
				Path:   authsdk.PathMe,
			})
			if err != nil {
				if errors.Is(err, apiclient.ErrUnauthorized) {
					return errNotLoggedIn
				}
				return err
			}
			writeLine(out, "%s <%s>", me.Username, me.Email)
			writeLine(out, "name:  %s", me.Name)
			writeLine(out, "id:    %s", me.ID)
			writeLine(out, "roles: %s", strings.Join(me.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Decode the stored credential instead of asking the server")
	return cmd
}

// readSecret returns flag when set and otherwise the first line of r.
func readSecret(r io.Reader, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("a password is required")
	}
	return line, nil
}
