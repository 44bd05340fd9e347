// Package sandbox anchors all relative-path resolution to a fixed set of
// configured root directories and rejects anything that escapes them.
package sandbox

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Root identifies one configured directory category.
type Root string

const (
	RootInput  Root = "input"
	RootOutput Root = "output"
	RootCopy   Root = "copy"
)

// RootNotConfiguredError is returned when resolving against a root that has
// no directory configured.
type RootNotConfiguredError struct {
	Root Root
}

func (e *RootNotConfiguredError) Error() string {
	return fmt.Sprintf("root %q is not configured", e.Root)
}

// PathViolationError is returned when a relative path would resolve outside
// its root directory.
type PathViolationError struct {
	Root Root
	Path string
}

func (e *PathViolationError) Error() string {
	return fmt.Sprintf("path %q escapes root %q", e.Path, e.Root)
}

// NotFoundError is returned when a listed path does not exist or cannot be
// read inside its root. The message carries only the relative path, never
// the host directory.
type NotFoundError struct {
	Root Root
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path %q not found in root %q", e.Path, e.Root)
}

// Box resolves relative paths against configured roots.
type Box struct {
	roots map[Root]string
}

// New builds a Box from root-to-directory mappings. Roots mapped to an empty
// string are treated as unconfigured. Directories are made absolute once at
// construction.
func New(roots map[Root]string) (*Box, error) {
	b := &Box{roots: make(map[Root]string, len(roots))}
	for root, dir := range roots {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", root, err)
		}
		b.roots[root] = filepath.Clean(abs)
	}
	return b, nil
}

// Dir returns the configured directory for a root.
func (b *Box) Dir(root Root) (string, bool) {
	dir, ok := b.roots[root]
	return dir, ok
}

// Resolve joins rel onto the root's directory and verifies the result stays
// inside it, following symlinks on the existing part of the path.
func (b *Box) Resolve(root Root, rel string) (string, error) {
	dir, ok := b.roots[root]
	if !ok {
		return "", &RootNotConfiguredError{Root: root}
	}
	if filepath.IsAbs(rel) || filepath.IsAbs(filepath.FromSlash(rel)) {
		return "", &PathViolationError{Root: root, Path: rel}
	}

	joined := filepath.Join(dir, filepath.FromSlash(rel))
	if !within(dir, joined) {
		return "", &PathViolationError{Root: root, Path: rel}
	}

	// A symlink inside the root may still point outside it. Compare the
	// fully resolved target against the resolved root.
	resolvedRoot, err := resolveExisting(dir)
	if err != nil {
		return "", &PathViolationError{Root: root, Path: rel}
	}
	resolved, err := resolveExisting(joined)
	if err != nil {
		return "", &PathViolationError{Root: root, Path: rel}
	}
	if !within(resolvedRoot, resolved) {
		return "", &PathViolationError{Root: root, Path: rel}
	}

	return joined, nil
}

// Entry is one direct child of a listed directory.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "dir" or "file"
}

// Listing is the result of listing one directory inside a root.
type Listing struct {
	Entries []Entry `json:"entries"`
	Current string  `json:"current"`
	Parent  string  `json:"parent"`
}

// List returns the direct children of rel inside root, directories before
// files, each group sorted case-insensitively by name.
func (b *Box) List(root Root, rel string) (Listing, error) {
	abs, err := b.Resolve(root, rel)
	if err != nil {
		return Listing{}, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		// A raw *fs.PathError would leak the host directory to callers.
		return Listing{}, &NotFoundError{Root: root, Path: rel}
	}

	current := path.Clean(filepath.ToSlash(rel))
	if current == "." || current == "/" {
		current = ""
	}
	parent := ""
	if current != "" {
		parent = path.Dir(current)
		if parent == "." {
			parent = ""
		}
	}

	var dirs, files []Entry
	for _, e := range entries {
		entry := Entry{
			Name: e.Name(),
			Path: path.Join(current, e.Name()),
			Type: "file",
		}
		if e.IsDir() {
			entry.Type = "dir"
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	sortEntries(dirs)
	sortEntries(files)

	return Listing{
		Entries: append(dirs, files...),
		Current: current,
		Parent:  parent,
	}, nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// within reports whether p is base itself or a descendant of base.
func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of
// path and rejoins the non-existing remainder.
func resolveExisting(p string) (string, error) {
	current := p
	var suffix []string
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			parts := append([]string{resolved}, suffix...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return p, nil
		}
		suffix = append([]string{filepath.Base(current)}, suffix...)
		current = parent
	}
}
