package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/moby/sys/atomicwriter"
)

// ErrDirNotFound is returned when a copy source or destination directory is missing.
var ErrDirNotFound = errors.New("directory not found")

// CopyFile copies file from srcDir into destDir. Both directories must already
// exist. The destination is replaced atomically and keeps the source mode.
func CopyFile(srcDir, destDir, file string) error {
	if err := requireDir(srcDir); err != nil {
		return fmt.Errorf("copy: source %w", err)
	}
	if err := requireDir(destDir); err != nil {
		return fmt.Errorf("copy: destination %w", err)
	}
	src := filepath.Join(srcDir, file)
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copy: read %s: %w", src, err)
	}
	dest := filepath.Join(destDir, file)
	if err := atomicwriter.WriteFile(dest, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copy: write %s: %w", dest, err)
	}
	return nil
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes path recursively. A missing path is not an error.
func RemoveAll(path string) error {
	if path == "" || path == "/" {
		return fmt.Errorf("remove: refusing to delete %q", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Clone runs git clone into dest. A non-empty dest is treated as already
// cloned. depth <= 0 clones full history.
func Clone(ctx context.Context, x Executor, repository, dest string, depth int) error {
	if repository == "" {
		return fmt.Errorf("clone: repository is required")
	}
	if cloned, err := nonEmptyDir(dest); err != nil {
		return fmt.Errorf("clone: %w", err)
	} else if cloned {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth="+strconv.Itoa(depth))
	}
	args = append(args, repository, dest)
	if _, err := x.Run(ctx, "git", args...); err != nil {
		return fmt.Errorf("clone %s: %w", repository, err)
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDirNotFound, path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, path)
	}
	return nil
}

func nonEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}
