package root

import (
	"github.com/spf13/cobra"

	"opengauss.org/monitor-publisher-go/internal/cmd"
)

func GetRootCommand() *cobra.Command {

	c := &cobra.Command{
		Use:   "monitor-publisher-go",
		Short: "openGauss Monitor Publisher Go",
		Long:  "openGauss monitor job publish and scheduling orchestrator",
	}

	c.AddCommand(cmd.VersionCommand())
	c.AddCommand(cmd.ServerCommand())

	return c
}
