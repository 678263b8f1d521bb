package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/authguard/version"
)

const serviceName = "authguard"

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

const rootLong = `authguard decides, for every request, whether the caller may see the page,
must sign in first, or is already signed in and should skip the auth pages.`

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Session routing guard for Supabase-authenticated web apps",
		Long:         rootLong,
		Version:      version.String(),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", ".env file path")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newDecideCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
