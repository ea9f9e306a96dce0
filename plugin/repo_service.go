package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/plugin/services"
	"github.com/spf13/afero"
)

// RepoService implements the repository use cases: lookup, import and best-version search.
type RepoService struct {
	fs       ports.Filesystem
	logger   *slog.Logger
	catalogs []ports.Catalog
}

// RepoServiceOption configures a RepoService.
type RepoServiceOption func(*RepoService)

// WithRepoFilesystem sets the filesystem import paths are expanded on.
func WithRepoFilesystem(fs ports.Filesystem) RepoServiceOption {
	return func(s *RepoService) { s.fs = fs }
}

// WithRepoLogger sets the logger.
func WithRepoLogger(l *slog.Logger) RepoServiceOption {
	return func(s *RepoService) { s.logger = l }
}

// NewRepoService creates a repository service over catalogs.
func NewRepoService(catalogs []ports.Catalog, opts ...RepoServiceOption) *RepoService {
	s := &RepoService{
		catalogs: catalogs,
		fs:       ports.OSFilesystem(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog named name.
func (s *RepoService) Catalog(name string) (ports.Catalog, error) {
	names := make([]string, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		if c.Name() == name {
			return c, nil
		}
		names = append(names, c.Name())
	}
	return nil, entities.NewNotFoundError("repository", name, names)
}

// Catalogs returns every catalog in configuration order.
func (s *RepoService) Catalogs() []ports.Catalog {
	return s.catalogs
}

// Expand resolves paths and glob patterns ("**" allowed) into artifacts.
// Paths that do not name a parseable artifact are returned as bad files.
func (s *RepoService) Expand(ctx context.Context, patterns []string) ([]entities.Plugin, []entities.BadFile, error) {
	var plugins []entities.Plugin
	var bad []entities.BadFile

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		paths, err := s.glob(pattern)
		if err != nil {
			return nil, nil, err
		}
		if len(paths) == 0 {
			bad = append(bad, entities.BadFile{Path: pattern, Reason: os.ErrNotExist})
			continue
		}

		for _, path := range paths {
			plugin, err := entities.NewPluginFromPath(path)
			if err != nil {
				bad = append(bad, entities.BadFile{Path: path, Reason: err})
				continue
			}
			plugins = append(plugins, plugin)
		}
	}

	entities.SortPlugins(plugins)
	return plugins, bad, nil
}

// Import copies plugins into the repository named repoName.
// Every destination is checked before the first copy, so an existing artifact
// aborts the import without touching the repository.
func (s *RepoService) Import(ctx context.Context, repoName string, plugins []entities.Plugin) ([]string, error) {
	catalog, err := s.Catalog(repoName)
	if err != nil {
		return nil, err
	}

	existing, err := catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repository %s: %w", repoName, err)
	}
	for _, p := range plugins {
		if entities.ContainsPlugin(existing, p) {
			return nil, &entities.AlreadyExistsError{Path: filepath.Join(catalog.Root(), p.Filename())}
		}
	}

	imported := make([]string, 0, len(plugins))
	for _, p := range plugins {
		dest, err := catalog.Import(ctx, p)
		if err != nil {
			return imported, fmt.Errorf("import %s: %w", p, err)
		}
		s.logger.Info("imported plugin", "repository", repoName, "plugin", p.Name, "version", p.Version.String())
		imported = append(imported, dest)
	}
	return imported, nil
}

// BestVersion returns the highest version of name across all catalogs.
func (s *RepoService) BestVersion(ctx context.Context, name string) (entities.Plugin, error) {
	available, err := services.CollectAvailability(ctx, s.catalogs)
	if err != nil {
		return entities.Plugin{}, err
	}
	best, ok := available.Best(name)
	if !ok {
		return entities.Plugin{}, entities.NewNotFoundError("plugin", name, available.Names())
	}
	return best, nil
}

// glob expands pattern. Plain paths are returned as-is when they exist.
func (s *RepoService) glob(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		exists, err := afero.Exists(s.fs, pattern)
		if err != nil || !exists {
			return nil, err
		}
		return []string{pattern}, nil
	}

	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(s.fs, base)), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)))
	}
	return paths, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{`)
}
