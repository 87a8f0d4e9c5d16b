package reader

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// emphasisRegex matches inline markers that should not be read aloud.
var emphasisRegex = regexp.MustCompile("[*_`]+")

// Load splits a Markdown file into chapters at top-level (#) headers.
// Deeper headers stay in their chapter as plain lines. Text before the first
// header becomes an untitled chapter.
func (f *MarkdownFormat) Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	book := &Book{}
	var current *Chapter
	var lines []string

	save := func() {
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if current != nil || text != "" {
			ch := Chapter{Text: text}
			if current != nil {
				ch.Title = current.Title
			}
			book.Chapters = append(book.Chapters, ch)
		}
		lines = nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if match := headerRegex.FindStringSubmatch(line); match != nil {
			title := strings.TrimSpace(match[2])
			if len(match[1]) == 1 {
				save()
				current = &Chapter{Title: title}
				continue
			}
			line = title
		}

		line = strings.TrimSpace(emphasisRegex.ReplaceAllString(line, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	save()

	return book, nil
}

// TOC lists one entry per chapter, since chapters are the document's
// top-level headers.
func (f *MarkdownFormat) TOC(_ string, book *Book) ([]TOCEntry, error) {
	var entries []TOCEntry
	for i, ch := range book.Chapters {
		if ch.Title == "" {
			continue
		}
		entries = append(entries, TOCEntry{Title: ch.Title, Chapter: i})
	}
	return entries, nil
}
