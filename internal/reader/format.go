package reader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoChapters is returned when a file yields no readable chapters.
var ErrNoChapters = errors.New("no readable chapters")

// Format defines a file format reader that splits a file into chapters.
type Format interface {
	Name() string
	Extensions() []string
	Load(filename string) (*Book, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Open loads a book using the format registered for the file's extension,
// falling back to plain text. The TOC is attached when the format offers one.
func Open(filename string) (*Book, error) {
	f := formatFor(filename)
	book, err := f.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(filename), err)
	}
	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(filename), ErrNoChapters)
	}
	book.Path = filename

	if tp, ok := f.(TOCProvider); ok {
		if toc, err := tp.TOC(filename, book); err == nil {
			book.TOC = toc
		}
	}
	return book, nil
}

func formatFor(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return textFormat{}
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// textFormat reads any other file as a single untitled chapter.
type textFormat struct{}

func (textFormat) Name() string         { return "Text" }
func (textFormat) Extensions() []string { return []string{".txt"} }

func (textFormat) Load(filename string) (*Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return &Book{}, nil
	}
	return &Book{Chapters: []Chapter{{Text: text}}}, nil
}
