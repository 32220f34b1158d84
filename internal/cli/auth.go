package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"inventory_admin/internal/models"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the inventory backend",
		Long:  "Sign in with email and password. The token and profile are kept in the session store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = prompt(cmd, "Password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}

			info, err := admin.ProcessLogin(cmd.Context(), models.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", email, info.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Operator email")
	cmd.Flags().StringVar(&password, "password", "", "Operator password (prompted if omitted)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := admin.ProcessLogout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in operator and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := admin.Session()
			if !info.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			return render(cmd.OutOrStdout(), flagOutput, info, func(w io.Writer) error {
				email, _ := info.User["email"].(string)
				fmt.Fprintf(w, "email:\t%s\nrole:\t%s\n", email, info.Role)
				return nil
			})
		},
	}
}

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password-reset flow",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := admin.ProcessForgotPassword(cmd.Context(), models.PasswordResetRequest{Email: email})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), orDefault(msg, "Reset link requested"))
			return nil
		},
	}
	forgot.Flags().StringVar(&email, "email", "", "Operator email")

	var token, newPassword string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := admin.ProcessValidateResetToken(cmd.Context(), token); err != nil {
				return err
			}
			if newPassword == "" {
				var err error
				if newPassword, err = prompt(cmd, "New password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			msg, err := admin.ProcessResetPassword(cmd.Context(), models.NewPasswordRequest{Token: token, Password: newPassword})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), orDefault(msg, "Password updated, sign in again"))
			return nil
		},
	}
	reset.Flags().StringVar(&token, "token", "", "Reset token from the email")
	reset.Flags().StringVar(&newPassword, "password", "", "New password (prompted if omitted)")

	cmd.AddCommand(forgot, reset)
	return cmd
}

// prompt reads one line from the command's input.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
