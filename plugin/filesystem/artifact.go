package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/spf13/afero"
)

// stagePrefix marks temporary files and links created while staging.
const stagePrefix = ".mpm-"

// ArtifactMode is the permission applied to copied artifacts.
const ArtifactMode os.FileMode = 0o644

// StageCopy copies src into a new temporary file inside dir and returns its path.
// The caller either renames the file into place or removes it.
func StageCopy(fsys afero.Fs, src, dir string) (string, error) {
	in, err := fsys.Open(src)
	if err != nil {
		return "", fmt.Errorf("open artifact %q: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := afero.TempFile(fsys, dir, stagePrefix+"stage-*")
	if err != nil {
		return "", fmt.Errorf("create staging file in %q: %w", dir, err)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = fsys.Remove(tmp)
		return "", fmt.Errorf("copy artifact %q: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = fsys.Remove(tmp)
		return "", fmt.Errorf("sync staging file %q: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return "", fmt.Errorf("close staging file %q: %w", tmp, err)
	}
	if err := fsys.Chmod(tmp, ArtifactMode); err != nil {
		_ = fsys.Remove(tmp)
		return "", fmt.Errorf("chmod staging file %q: %w", tmp, err)
	}

	return tmp, nil
}

// CommitStaged renames a staged file to dest, refusing to replace an existing file.
func CommitStaged(fsys afero.Fs, staged, dest string) error {
	exists, err := Lexists(fsys, dest)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("commit %q: destination already exists", dest)
	}
	if err := fsys.Rename(staged, dest); err != nil {
		return fmt.Errorf("commit %q: %w", dest, err)
	}
	return nil
}

// SwapSymlink points link at target. An existing link is replaced atomically:
// the new link is created under a temporary name and renamed over the old one.
func SwapSymlink(fsys ports.Filesystem, target, link string) error {
	tmp := filepath.Join(filepath.Dir(link), stagePrefix+uuid.NewString()+".link")

	if err := fsys.SymlinkIfPossible(target, tmp); err != nil {
		return fmt.Errorf("create link %q: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, link); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replace link %q: %w", link, err)
	}
	return nil
}

// Lexists reports whether path exists without following a final symlink.
func Lexists(fsys afero.Fs, path string) (bool, error) {
	var err error
	if lstater, ok := fsys.(afero.Lstater); ok {
		_, _, err = lstater.LstatIfPossible(path)
	} else {
		_, err = fsys.Stat(path)
	}
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsStaging reports whether name was created by StageCopy or SwapSymlink.
func IsStaging(name string) bool {
	return strings.HasPrefix(name, stagePrefix)
}
