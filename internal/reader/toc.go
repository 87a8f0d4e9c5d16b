package reader

import (
	"fmt"
	"path/filepath"
)

// Chapter is one document part of a book reduced to a title and plain text.
type Chapter struct {
	Title string
	Text  string

	// Href is the chapter's path inside its container, when it has one.
	Href string
}

// Label returns the chapter list label for the chapter at the given
// zero-based position.
func (c Chapter) Label(index int) string {
	if c.Title == "" {
		return fmt.Sprintf("Chapter %d", index+1)
	}
	return fmt.Sprintf("Chapter %d: %s", index+1, c.Title)
}

// TOCEntry represents a single entry in a table of contents
type TOCEntry struct {
	Title   string
	Chapter int
	Level   int
}

// Book is an ordered, read-only sequence of chapters.
type Book struct {
	Path     string
	Chapters []Chapter
	TOC      []TOCEntry

	// Publication metadata, empty when the format carries none.
	Title    string
	Author   string
	Language string
}

// Name returns the book's title and author when known, else its file name.
func (b *Book) Name() string {
	if b.Title == "" {
		return filepath.Base(b.Path)
	}
	if b.Author == "" {
		return b.Title
	}
	return b.Title + " by " + b.Author
}

// Labels returns the display label of every chapter, in order.
func (b *Book) Labels() []string {
	labels := make([]string, len(b.Chapters))
	for i, ch := range b.Chapters {
		labels[i] = ch.Label(i)
	}
	return labels
}

// TOCProvider is an optional interface for formats that support TOC extraction
type TOCProvider interface {
	TOC(filename string, book *Book) ([]TOCEntry, error)
}
