package root

import (
	"github.com/crucial707/tools-sys/cmd/cli/auth"
	"github.com/crucial707/tools-sys/cmd/cli/tools"
	"github.com/crucial707/tools-sys/cmd/cli/users"
	"github.com/spf13/cobra"
)

// NewRoot builds the toolsctl command tree.
func NewRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "toolsctl",
		Short:         "Tools-Sys CLI",
		Long:          "Command line interface for the Tools-Sys API. Set TOOLSYS_API_URL to target another server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	auth.InitAuth(rootCmd)
	tools.InitTools(rootCmd)
	users.InitUsers(rootCmd)
	return rootCmd
}
