package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/authguard/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			cmd.Printf("authguard %s\n", version.String())
			if info.GoVersion != "" {
				cmd.Printf("go: %s\n", info.GoVersion)
			}
			return nil
		},
	}
}
