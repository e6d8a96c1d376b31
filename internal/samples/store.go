// Package samples owns the on-disk sample document store the API exposes for
// browsing and one-click processing.
package samples

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

// Node is one entry of the sample tree. Folders carry Children; files carry Size.
type Node struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"` // "folder" or "file"
	Size     int64  `json:"size,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Store lists and reads sample documents under a fixed root directory.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create samples dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Dir returns the store's root directory, for static file serving.
func (s *Store) Dir() string { return s.root }

// Tree returns the recursive structure of sample folders and files. Dotfiles
// are skipped; only supported document types are listed.
func (s *Store) Tree() (Node, error) {
	root, err := s.walk(s.root, "")
	if err != nil {
		return Node{}, err
	}
	return root, nil
}

func (s *Store) walk(dir, rel string) (Node, error) {
	node := Node{
		Name:     filepath.Base(dir),
		Path:     rel,
		Type:     "folder",
		Children: []Node{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Node{}, fmt.Errorf("read samples dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}

		if entry.IsDir() {
			child, err := s.walk(filepath.Join(dir, entry.Name()), childRel)
			if err != nil {
				return Node{}, err
			}
			node.Children = append(node.Children, child)
			continue
		}

		if _, ok := domain.KindForFilename(entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		node.Children = append(node.Children, Node{
			Name: entry.Name(),
			Path: childRel,
			Type: "file",
			Size: info.Size(),
		})
	}

	return node, nil
}

// Read loads a sample by its tree-relative path and returns it as a Document.
// Path traversal outside the root and unsupported types fail with
// domain.ErrSampleNotFound.
func (s *Store) Read(name string) (domain.Document, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return domain.Document{}, fmt.Errorf("%s: %w", name, domain.ErrSampleNotFound)
	}

	kind, ok := domain.KindForFilename(clean)
	if !ok {
		return domain.Document{}, fmt.Errorf("%s: %w", name, domain.ErrSampleNotFound)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", name, domain.ErrSampleNotFound)
	}

	return domain.Document{Bytes: data, Kind: kind}, nil
}
