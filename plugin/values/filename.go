package values

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// JarExt is the artifact file extension.
const JarExt = ".jar"

// VersionsDir is the directory, relative to a server's plugin directory,
// holding the artifacts managed links point at.
const VersionsDir = "versions"

// artifactPattern splits "<name>-<version>.jar" on the last version-shaped suffix.
// The name group is greedy so "foo-2-1.0.jar" yields name "foo-2".
var artifactPattern = regexp.MustCompile(
	`^(?P<name>.+)-(?P<version>\d+(?:\.\d+)*(?:-[0-9A-Za-z][0-9A-Za-z.-]*)?(?:\+[0-9A-Za-z.-]+)?)\.jar$`,
)

// FilenameParseError indicates a file that does not follow the artifact naming convention.
type FilenameParseError struct {
	Filename string
}

func (e *FilenameParseError) Error() string {
	return fmt.Sprintf("cannot derive plugin name from %q", e.Filename)
}

// ParseArtifactFilename derives (name, version) from a path whose base name is
// "<name>-<version>.jar".
func ParseArtifactFilename(path string) (string, Version, error) {
	base := filepath.Base(path)
	m := artifactPattern.FindStringSubmatch(base)
	if m == nil {
		return "", Version{}, &FilenameParseError{Filename: base}
	}

	name := m[artifactPattern.SubexpIndex("name")]
	version, err := CoerceVersion(m[artifactPattern.SubexpIndex("version")])
	if err != nil {
		return "", Version{}, fmt.Errorf("%s: %w", base, err)
	}
	return name, version, nil
}

// ArtifactFilename returns the canonical "<name>-<version>.jar" file name.
func ArtifactFilename(name string, version Version) string {
	return fmt.Sprintf("%s-%s%s", name, version.String(), JarExt)
}

// LinkName returns the managed symlink name "<name>.jar".
func LinkName(name string) string {
	return name + JarExt
}

// LinkTarget returns the relative target a managed link uses, "versions/<name>-<version>.jar".
func LinkTarget(name string, version Version) string {
	return filepath.Join(VersionsDir, ArtifactFilename(name, version))
}

// IsJar reports whether the file name carries the artifact extension.
func IsJar(filename string) bool {
	return strings.HasSuffix(filename, JarExt)
}
