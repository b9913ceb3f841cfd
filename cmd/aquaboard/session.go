package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aquaguardian/aquaboard/internal/session"
)

// withStore opens the configured session store for the duration of fn.
func withStore(fn func(store *session.Store) error) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	store, err := session.Open(cfg.Session)
	if err != nil {
		return err
	}

	defer store.Close()

	return fn(store)
}

func loginCmd() *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := session.ParseRole(role)
			if err != nil {
				return err
			}

			user, err := session.Login(email, password, r)
			if err != nil {
				return err
			}

			return withStore(func(store *session.Store) error {
				if err := store.Save(user); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Name, user.Role)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(session.RoleCitizen), "Student, Citizen, NGO, Government or Other")

	return cmd
}

func signupCmd() *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := session.ParseRole(role)
			if err != nil {
				return err
			}

			user, err := session.Signup(email, password, name, r)
			if err != nil {
				return err
			}

			return withStore(func(store *session.Store) error {
				if err := store.Save(user); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.Name)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(session.RoleCitizen), "Student, Citizen, NGO, Government or Other")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(func(store *session.Store) error {
				if err := store.Delete(); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")

				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(func(store *session.Store) error {
				user, err := store.Load()
				if errors.Is(err, session.ErrNoSession) {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")

					return nil
				}

				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
				fmt.Fprintf(out, "role:     %s\n", user.Role)
				fmt.Fprintf(out, "id:       %s\n", user.ID)
				fmt.Fprintf(out, "reports:  %s\n", humanize.Comma(int64(user.ReportsSubmitted)))
				fmt.Fprintf(out, "cleanups: %s\n", humanize.Comma(int64(user.CleanUpsJoined)))
				fmt.Fprintf(out, "nfts:     %s\n", humanize.Comma(int64(user.NFTsAdopted)))

				return nil
			})
		},
	}
}
