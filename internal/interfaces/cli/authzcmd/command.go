// Package authzcmd manages grants from the command line. Commands run as
// the operator given by --actor and skip the HTTP guards.
package authzcmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/interfaces/bootstrap"
	"vulntrack/internal/shared/constants"
	"vulntrack/internal/shared/logger"
)

var (
	env        string
	configPath string
	actor      string
	level      string
	object     string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz",
		Short: "Manage authorization grants",
		Long:  `Grant, revoke and inspect roles at the user, group and organization levels.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&actor, "actor", "", "Operator recorded as the author of the change")

	cmd.AddCommand(
		newGrantCommand(),
		newRevokeCommand(),
		newCheckCommand(),
		newListCommand(),
	)

	return cmd
}

func levelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&level, "level", "l", "group", "Level (user, group, organization)")
	cmd.Flags().StringVarP(&object, "object", "o", "", "Group or organization name; ignored at user level")
}

func newGrantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <subject> <role>",
		Short: "Grant a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App, lvl authz.Level) error {
				if _, err := app.Authz.Grant(cmd.Context(), lvl, args[0], object, args[1], operator()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
				return nil
			})
		},
	}
	levelFlags(cmd)
	return cmd
}

func newRevokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <subject>",
		Short: "Revoke a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App, lvl authz.Level) error {
				if _, err := app.Authz.Revoke(cmd.Context(), lvl, args[0], object, operator()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
				return nil
			})
		},
	}
	levelFlags(cmd)
	return cmd
}

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <subject> <action>",
		Short: "Evaluate one decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App, lvl authz.Level) error {
				obj := object
				if lvl == authz.LevelUser {
					obj = authz.SelfObject
				}
				allowed := app.Authz.Authorize(cmd.Context(), lvl, args[0], obj, args[1])
				fmt.Fprintf(cmd.OutOrStdout(), "%t\n", allowed)
				return nil
			})
		},
	}
	levelFlags(cmd)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <subject>",
		Short: "List a subject's grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App, _ authz.Level) error {
				policies, err := app.Authz.Policies(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "LEVEL\tOBJECT\tROLE\tMODIFIED BY")
				for _, p := range policies {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Level(), p.Object(), p.Role(), p.ModifiedBy())
				}
				return w.Flush()
			})
		},
	}
}

func operator() string {
	if actor != "" {
		return actor
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func withApp(cmd *cobra.Command, fn func(app *bootstrap.App, lvl authz.Level) error) error {
	lvl := authz.LevelGroup
	if level != "" {
		parsed, err := authz.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}

	cfg, err := bootstrap.LoadConfig(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := bootstrap.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app, lvl)
}
