package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mpm-dev/mpm/plugin"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newServerCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage servers and their plugins",
	}
	cmd.AddCommand(newServerAddCommand(opts))
	cmd.AddCommand(newServerListCommand(opts))
	cmd.AddCommand(newServerAddPluginCommand(opts))
	cmd.AddCommand(newServerSyncCommand(opts))
	return cmd
}

func newServerAddCommand(opts *options) *cobra.Command {
	var inherit []string

	cmd := &cobra.Command{
		Use:   "add NAME PATH",
		Short: "Register a server by its root directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.load()
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if err := ws.doc.AddServer(args[0], path, inherit...); err != nil {
				return err
			}
			inv, err := ws.inventory(args[0])
			if err != nil {
				return err
			}
			if err := inv.EnsureLayout(); err != nil {
				return err
			}
			if err := ws.save(); err != nil {
				return err
			}

			opts.printf("Added server %s in %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inherit, "inherit", nil, "servers whose plugins this server also wants")
	return cmd
}

func newServerListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [SERVER...]",
		Short: "Show the plugin state of servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := opts.load()
			if err != nil {
				return err
			}
			servers, err := ws.inventories(args)
			if err != nil {
				return err
			}

			svc := ws.syncService()
			out := ws.report()
			for _, inv := range servers {
				states, err := svc.States(ctx, inv)
				if err != nil {
					return err
				}
				warnings, err := inv.Warnings(ctx)
				if err != nil {
					return err
				}
				out.Server(inv.Name(), inv.Root(), states, warnings)
			}
			return nil
		},
	}
}

func newServerAddPluginCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-plugin SERVER PLUGIN...",
		Short: "Declare plugins for a server",
		Long: `Declare plugins for a server. PLUGIN is either an artifact file, which
pins the server to that exact version, or a plugin name, which pins the
highest version found in any repository.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := opts.load()
			if err != nil {
				return err
			}
			server := args[0]
			if _, err := ws.doc.Server(server); err != nil {
				return err
			}

			svc := ws.repoService()
			specs := make([]entities.PluginSpec, 0, len(args)-1)
			for _, arg := range args[1:] {
				spec, err := pinnedSpec(ctx, ws, svc, arg)
				if err != nil {
					return err
				}
				if err := ws.doc.AddPlugin(server, spec); err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			ws.report().Specs(fmt.Sprintf("Plugins to add to %s:", server), specs)
			ok, err := opts.confirm(ctx, fmt.Sprintf("Add these plugins to server %s?", server))
			if err != nil || !ok {
				return err
			}
			if err := ws.save(); err != nil {
				return err
			}
			opts.printf("Added %d plugin(s) to %s.\n", len(specs), server)
			return nil
		},
	}
}

// pinnedSpec pins arg to an exact version: the artifact's own version when arg
// is a file, the best repository version when it is a plugin name.
func pinnedSpec(ctx context.Context, ws *workspace, svc *plugin.RepoService, arg string) (entities.PluginSpec, error) {
	isFile, err := afero.Exists(ws.fs, arg)
	if err != nil {
		return entities.PluginSpec{}, err
	}
	if isFile {
		p, err := entities.NewPluginFromPath(arg)
		if err != nil {
			return entities.PluginSpec{}, err
		}
		return entities.NewPluginSpec(p.Name, p.Version.String())
	}

	best, err := svc.BestVersion(ctx, arg)
	if err != nil {
		return entities.PluginSpec{}, err
	}
	return entities.NewPluginSpec(best.Name, best.Version.String())
}

func newServerSyncCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [SERVER...]",
		Short: "Install, relink and remove plugins until servers match their declarations",
		Long: `Plan the transactions that bring servers in line with their declared
plugins and apply them after confirmation. Every transaction is checked
before anything is changed; a failed check aborts the whole sync.

Confirmation is only asked on a terminal. When input is piped or the
command runs from a script, pass --yes to apply the plan; without it the
sync is cancelled and nothing changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := opts.load()
			if err != nil {
				return err
			}
			servers, err := ws.inventories(args)
			if err != nil {
				return err
			}

			out := ws.report()
			svc := ws.syncService(plugin.WithCommitHook(func(tx ports.Transaction) {
				opts.printf("  %s\n", tx)
			}))

			last, err := svc.LastJournal(ctx)
			if err != nil {
				opts.logger.Warn("could not read previous sync journal", "error", err)
			} else if last != nil && last.Interrupted() {
				out.Interrupted(last)
			}

			inventories := make([]ports.Inventory, 0, len(servers))
			for _, inv := range servers {
				warnings, err := inv.Warnings(ctx)
				if err != nil {
					return err
				}
				out.BadFiles(warnings)
				inventories = append(inventories, inv)
			}

			plan, err := svc.Plan(ctx, inventories...)
			if err != nil {
				return err
			}
			out.Plan(plan)
			if len(plan) == 0 {
				return nil
			}

			ok, err := opts.confirm(ctx, fmt.Sprintf("Apply %d change(s)?", len(plan)))
			if err != nil || !ok {
				return err
			}

			journal, err := svc.Apply(ctx, plan)
			out.Journal(journal)
			return err
		},
	}
}
