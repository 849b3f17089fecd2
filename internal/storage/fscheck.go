package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNetworkFilesystem is returned when the state database would live on a
// network mount.
var ErrNetworkFilesystem = errors.New("storage: sqlite database on network filesystem")

// FilesystemError reports the mount type that rejected a database path.
type FilesystemError struct {
	Path   string
	FSType string
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %q is on %q, SQLite needs local locking; point state.path at local disk",
		ErrNetworkFilesystem, e.Path, e.FSType)
}

func (e *FilesystemError) Unwrap() error { return ErrNetworkFilesystem }

var networkFilesystems = []string{"afpfs", "cifs", "nfs", "smb2", "smbfs", "webdav"}

// CheckLocalFilesystem ensures path sits on a local filesystem. Platforms
// without detection pass.
func CheckLocalFilesystem(path string) error {
	return checkLocalFilesystem(path, statFilesystem)
}

func checkLocalFilesystem(path string, detect func(string) (string, error)) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}
	existing, err := nearestExistingPath(path)
	if err != nil {
		return fmt.Errorf("resolve database path %q: %w", path, err)
	}

	switch fsType, err := detect(existing); {
	case errors.Is(err, errUnsupported):
		return nil
	case err != nil:
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	case slices.Contains(networkFilesystems, strings.ToLower(strings.TrimSpace(fsType))):
		return &FilesystemError{Path: path, FSType: fsType}
	default:
		return nil
	}
}

// nearestExistingPath walks up from path until something exists. The
// database file and its directory are usually created later.
func nearestExistingPath(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	for {
		_, err := os.Stat(dir)
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %q: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing parent for %q", path)
		}
		dir = parent
	}
}
