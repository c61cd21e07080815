package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ReadFileArgs are the parameters of the read_file tool.
type ReadFileArgs struct {
	Path     string `json:"path" jsonschema:"required,description=Path to the file to read."`
	MaxLines int    `json:"max_lines,omitempty" jsonschema:"description=Maximum number of lines to return. Defaults to 500."`
}

// ListFilesEntry describes one matched filesystem entry.
type ListFilesEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// ListFilesArgs are the parameters of the list_files tool.
type ListFilesArgs struct {
	Directory string `json:"directory,omitempty" jsonschema:"description=Directory to list files in. Defaults to the current directory."`
	Pattern   string `json:"pattern,omitempty" jsonschema:"description=Glob pattern to match, supporting ** for recursive matches (e.g. '**/*.go'). Defaults to '*'."`
}

// RegisterFileTools registers read_file and list_files, both scoped to the
// given root directory to keep an agent from reading arbitrary host paths.
func RegisterFileTools(r *Registry, root string) error {
	if err := Register(r, "read_file", "Read the contents of a file.",
		func(ctx context.Context, args ReadFileArgs) (any, error) {
			maxLines := args.MaxLines
			if maxLines <= 0 {
				maxLines = 500
			}
			return readFile(root, args.Path, maxLines)
		}); err != nil {
		return err
	}

	return Register(r, "list_files", "List files in a directory matching a glob pattern.",
		func(ctx context.Context, args ListFilesArgs) (any, error) {
			dir := args.Directory
			if dir == "" {
				dir = "."
			}
			pattern := args.Pattern
			if pattern == "" {
				pattern = "*"
			}
			return listFiles(root, dir, pattern)
		})
}

func resolveWithinRoot(root, rel string) (string, error) {
	full := filepath.Join(root, rel)
	full = filepath.Clean(full)
	rootClean := filepath.Clean(root)
	if full != rootClean && !strings.HasPrefix(full, rootClean+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", rel)
	}
	return full, nil
}

func readFile(root, path string, maxLines int) (string, error) {
	full, err := resolveWithinRoot(root, path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(full)
	if err != nil {
		return fmt.Sprintf("Error: file not found: %s", path), nil
	}
	if info.IsDir() {
		return fmt.Sprintf("Error: not a file: %s", path), nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLines {
		truncated := strings.Join(lines[:maxLines], "\n")
		return fmt.Sprintf("%s\n\n... truncated (%d total lines)", truncated, len(lines)), nil
	}
	return string(data), nil
}

func listFiles(root, dir, pattern string) ([]ListFilesEntry, error) {
	full, err := resolveWithinRoot(root, dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	fsys := os.DirFS(full)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	sort.Strings(matches)

	var results []ListFilesEntry
	for _, m := range matches {
		abs := filepath.Join(full, m)
		st, err := os.Stat(abs)
		if err != nil {
			continue
		}
		entry := ListFilesEntry{Name: filepath.Base(m), Path: filepath.Join(dir, m)}
		if st.IsDir() {
			entry.Type = "directory"
		} else {
			entry.Type = "file"
			entry.Size = st.Size()
		}
		results = append(results, entry)
		if len(results) >= 200 {
			break
		}
	}
	return results, nil
}
