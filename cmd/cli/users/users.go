package users

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crucial707/tools-sys/cmd/cli/client"
	"github.com/crucial707/tools-sys/cmd/cli/output"
	"github.com/crucial707/tools-sys/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// CLI Command Init
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		Long:  "List and provision accounts that can log in to the Tools-Sys API. Requires a stored token.",
	}

	usersCmd.AddCommand(listUsersCmd(), createUserCmd())
	rootCmd.AddCommand(usersCmd)
}

// ==========================
// List Users
// ==========================
func listUsersCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var list []models.User
			if err := c.Do(cmd.Context(), http.MethodGet, "/api/users", nil, &list); err != nil {
				return err
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, u := range list {
				rows = append(rows, []interface{}{u.ID, u.Username, u.IsAdmin, u.CreatedAt.Format("2006-01-02")})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Username", "Admin", "Created"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

// ==========================
// Create User
// ==========================
func createUserCmd() *cobra.Command {
	var username, password string
	var admin bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			payload := map[string]interface{}{
				"username": username,
				"password": password,
				"is_admin": admin,
			}
			var u models.User
			if err := c.Do(cmd.Context(), http.MethodPost, "/api/users", payload, &u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %d).\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin flag")
	return cmd
}
