package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/hmans/catalog/internal/library"
)

// ImportBooks adds one book per markdown file under dir. Each file carries the
// book in its YAML front matter:
//
//	---
//	title: The Demon
//	author: Fyodor Dostoevsky
//	published: 1872
//	genres: [classic, revolution]
//	---
//
// Files are processed in lexical order. Import stops at the first file that
// fails; books added before it are kept.
func (s *Service) ImportBooks(ctx context.Context, dir string) ([]*library.Book, error) {
	paths, err := bookFiles(dir)
	if err != nil {
		return nil, err
	}

	added := make([]*library.Book, 0, len(paths))
	for _, path := range paths {
		in, err := readBookFile(path)
		if err != nil {
			return added, fmt.Errorf("%s: %w", path, err)
		}
		b, err := s.AddBook(ctx, in)
		if err != nil {
			return added, fmt.Errorf("%s: %w", path, err)
		}
		added = append(added, b)
	}
	return added, nil
}

// bookFiles lists the markdown files under dir in lexical order.
func bookFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isBookFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func isBookFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func readBookFile(path string) (NewBook, error) {
	var in NewBook
	f, err := os.Open(path)
	if err != nil {
		return in, err
	}
	defer f.Close()

	if _, err := frontmatter.Parse(f, &in); err != nil {
		return in, fmt.Errorf("parsing front matter: %w", err)
	}
	return in, nil
}
