package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRepoCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage artifact repositories",
	}
	cmd.AddCommand(newRepoAddCommand(opts))
	cmd.AddCommand(newRepoListCommand(opts))
	cmd.AddCommand(newRepoImportCommand(opts))
	return cmd
}

func newRepoAddCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME PATH",
		Short: "Register a repository, creating its directory if needed",
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
			if err := ws.doc.AddRepository(args[0], path); err != nil {
				return err
			}
			if err := ws.fs.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("create repository directory: %w", err)
			}
			if err := ws.save(); err != nil {
				return err
			}

			opts.printf("Added repository %s (%s)\n", args[0], path)
			return nil
		},
	}
}

func newRepoListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List repositories and the artifacts they hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.load()
			if err != nil {
				return err
			}

			out := ws.report()
			for _, catalog := range ws.catalogs() {
				plugins, err := catalog.List(cmd.Context())
				if err != nil {
					return err
				}
				bad, err := catalog.BadFiles(cmd.Context())
				if err != nil {
					return err
				}
				out.Repository(catalog.Name(), catalog.Root(), plugins, bad)
			}
			return nil
		},
	}
}

func newRepoImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import NAME PATH...",
		Short: "Copy artifacts into a repository",
		Long: `Copy artifacts into a repository under their canonical
<name>-<version>.jar file name. PATH may be a glob; "**" matches
any number of directories. Quote globs to keep the shell from expanding them.`,
		Example: `  mpm repo import main ./build/libs/lobby-ui-1.2.0.jar
  mpm repo import main 'downloads/**/*.jar'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := opts.load()
			if err != nil {
				return err
			}

			svc := ws.repoService()
			if _, err := svc.Catalog(args[0]); err != nil {
				return err
			}

			plugins, bad, err := svc.Expand(ctx, args[1:])
			if err != nil {
				return err
			}
			out := ws.report()
			out.BadFiles(bad)
			if len(plugins) == 0 {
				opts.printf("No plugins found.\n")
				return nil
			}

			out.Plugins("Found the following plugins:", plugins)
			ok, err := opts.confirm(ctx, fmt.Sprintf("Import %d plugin(s) into %s?", len(plugins), args[0]))
			if err != nil || !ok {
				return err
			}

			imported, err := svc.Import(ctx, args[0], plugins)
			if err != nil {
				return err
			}
			opts.printf("Imported %d plugin(s).\n", len(imported))
			return nil
		},
	}
}
