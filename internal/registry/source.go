// Package registry reads the chain registry checkout: a directory per chain
// holding chain.json and assetlist.json.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Source is the read side of the registry data tree.
type Source interface {
	// ListDirs returns the names of first-level directories under the root.
	ListDirs(ctx context.Context) ([]string, error)
	// ReadJSON decodes the file at the root-relative path into dst.
	ReadJSON(ctx context.Context, rel string, dst any) error
}

// DirSource serves a registry checkout from the local filesystem.
type DirSource struct {
	Root string
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Root: dir}
}

// ListDirs implements Source.
func (s *DirSource) ListDirs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ReadJSON implements Source. Comments and trailing commas are tolerated.
func (s *DirSource) ReadJSON(ctx context.Context, rel string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("read %s: path escapes registry root", rel)
	}
	path := filepath.Join(s.Root, clean)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), dst); err != nil {
		return fmt.Errorf("parse %s: %w", rel, err)
	}
	return nil
}
