// Package pathguard confines file paths derived from user input to a base
// directory.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// Resolve joins segments onto baseDir and returns the cleaned absolute path.
// It fails with simplegallery.ErrPathTraversal unless the result lies
// strictly inside baseDir, including after resolving symlinks of the part of
// the path that already exists.
func Resolve(baseDir string, segments ...string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("%w: empty base directory", simplegallery.ErrPathTraversal)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: no path segments", simplegallery.ErrPathTraversal)
	}
	for _, seg := range segments {
		if seg == "" || strings.ContainsRune(seg, 0) || filepath.IsAbs(seg) {
			return "", fmt.Errorf("%w: invalid segment %q", simplegallery.ErrPathTraversal, seg)
		}
	}

	base, err := canonicalBase(baseDir)
	if err != nil {
		return "", err
	}

	target := filepath.Join(append([]string{base}, segments...)...)
	if !within(base, target) {
		return "", fmt.Errorf("%w: %q", simplegallery.ErrPathTraversal, filepath.Join(segments...))
	}

	real, err := evalExisting(target)
	if err != nil {
		return "", err
	}
	if !within(base, real) {
		return "", fmt.Errorf("%w: %q resolves outside base", simplegallery.ErrPathTraversal, filepath.Join(segments...))
	}
	return target, nil
}

func canonicalBase(baseDir string) (string, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}
	return evalExisting(abs)
}

// within reports whether target is strictly below base.
func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-appends the part that does not exist yet.
func evalExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		if _, err := os.Lstat(cur); err == nil {
			real, err := filepath.EvalSymlinks(cur)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					// Dangling symlink: judge it by where it points.
					target, lerr := os.Readlink(cur)
					if lerr != nil {
						return "", fmt.Errorf("resolve path: %w", err)
					}
					if !filepath.IsAbs(target) {
						target = filepath.Join(filepath.Dir(cur), target)
					}
					real = filepath.Clean(target)
				} else {
					return "", fmt.Errorf("resolve path: %w", err)
				}
			}
			for i := len(rest) - 1; i >= 0; i-- {
				real = filepath.Join(real, rest[i])
			}
			return real, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}
