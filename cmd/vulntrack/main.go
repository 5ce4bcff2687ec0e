package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"vulntrack/internal/interfaces/cli/authzcmd"
	"vulntrack/internal/interfaces/cli/migrate"
	"vulntrack/internal/interfaces/cli/server"
	"vulntrack/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "vulntrack",
		Short:        "Vulntrack - vulnerability lifecycle and access control",
		Long:         `Vulntrack tracks findings and the treatment of their vulnerabilities, gated by a three-level role model.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		migrate.NewCommand(),
		authzcmd.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
