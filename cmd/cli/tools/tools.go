package tools

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crucial707/tools-sys/cmd/cli/client"
	"github.com/crucial707/tools-sys/cmd/cli/output"
	"github.com/crucial707/tools-sys/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Init Tools
// ==========================
func InitTools(rootCmd *cobra.Command) {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the tools catalog",
	}

	toolsCmd.AddCommand(
		listToolsCmd(),
		getToolCmd(),
		createToolCmd(),
		updateToolCmd(),
		deleteToolCmd(),
	)

	rootCmd.AddCommand(toolsCmd)
}

// ==========================
// LIST
// ==========================
func listToolsCmd() *cobra.Command {
	var asJSON bool
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/tools"
			if query != "" {
				path += "?q=" + url.QueryEscape(query)
			}

			var list []models.Tool
			if err := client.New("").Do(cmd.Context(), http.MethodGet, path, nil, &list); err != nil {
				return err
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, t := range list {
				rows = append(rows, []interface{}{t.ID, t.Name, output.Deref(t.Version), t.Route})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Version", "Route"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	cmd.Flags().StringVar(&query, "query", "", "filter by name or description")
	return cmd
}

// ==========================
// GET
// ==========================
func getToolCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var t models.Tool
			if err := client.New("").Do(cmd.Context(), http.MethodGet, toolPath(id), nil, &t); err != nil {
				return err
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), t)
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"Field", "Value"}, [][]interface{}{
				{"ID", t.ID},
				{"Name", t.Name},
				{"Description", output.Deref(t.Description)},
				{"Version", output.Deref(t.Version)},
				{"Route", t.Route},
				{"Icon", output.Deref(t.Icon)},
				{"Updated", t.UpdatedAt.Format("2006-01-02 15:04:05")},
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

// ==========================
// CREATE
// ==========================
func createToolCmd() *cobra.Command {
	var in toolFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a tool to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.name == "" || in.route == "" {
				return errors.New("--name and --route are required")
			}
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var out struct {
				ID      int64  `json:"id"`
				Message string `json:"message"`
			}
			if err := c.Do(cmd.Context(), http.MethodPost, "/api/tools", in.apply(cmd, models.ToolInput{}), &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tool %d created.\n", out.ID)
			return nil
		},
	}

	in.register(cmd)
	return cmd
}

// ==========================
// UPDATE
// ==========================
// Only flags that are set change; the rest is read back from the API first.
func updateToolCmd() *cobra.Command {
	var in toolFlags

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var current models.Tool
			if err := c.Do(cmd.Context(), http.MethodGet, toolPath(id), nil, &current); err != nil {
				return err
			}
			base := models.ToolInput{
				Name:        current.Name,
				Description: current.Description,
				Version:     current.Version,
				Route:       current.Route,
				Icon:        current.Icon,
			}

			if err := c.Do(cmd.Context(), http.MethodPut, toolPath(id), in.apply(cmd, base), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tool %d updated.\n", id)
			return nil
		},
	}

	in.register(cmd)
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteToolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if err := c.Do(cmd.Context(), http.MethodDelete, toolPath(id), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tool %d deleted.\n", id)
			return nil
		},
	}
}

type toolFlags struct {
	name, description, version, route, icon string
}

func (f *toolFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "tool name")
	cmd.Flags().StringVar(&f.description, "description", "", "tool description")
	cmd.Flags().StringVar(&f.version, "version", "", "tool version")
	cmd.Flags().StringVar(&f.route, "route", "", "frontend route, e.g. /tools/grep")
	cmd.Flags().StringVar(&f.icon, "icon", "", "icon name or URL")
}

// apply overlays the flags the user set onto base.
func (f *toolFlags) apply(cmd *cobra.Command, base models.ToolInput) models.ToolInput {
	flags := cmd.Flags()
	if flags.Changed("name") {
		base.Name = f.name
	}
	if flags.Changed("route") {
		base.Route = f.route
	}
	if flags.Changed("description") {
		base.Description = &f.description
	}
	if flags.Changed("version") {
		base.Version = &f.version
	}
	if flags.Changed("icon") {
		base.Icon = &f.icon
	}
	return base
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tool id %q", s)
	}
	return id, nil
}

func toolPath(id int64) string {
	return "/api/tools/" + strconv.FormatInt(id, 10)
}
