package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Load reads every document in the spine, in order, as one chapter.
// Documents that cannot be opened or parsed are skipped.
func (f *EPUBFormat) Load(filename string) (*Book, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	out := &Book{
		Title:    strings.TrimSpace(book.Title),
		Author:   strings.TrimSpace(book.Creator),
		Language: strings.TrimSpace(book.Language),
	}

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil || !isDocument(ref.Item.MediaType) {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		title, text, err := extractDocument(r)
		r.Close()
		if err != nil {
			continue
		}
		out.Chapters = append(out.Chapters, Chapter{Title: title, Text: text, Href: ref.Item.HREF})
	}

	return out, nil
}

func isDocument(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case "application/xhtml+xml", "text/html", "":
		return true
	}
	return false
}

// extractDocument parses an (X)HTML document and returns its <title> and
// the plain text of its body.
func extractDocument(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}
	if t := findElement(doc, atom.Title); t != nil {
		title = collapseSpace(nodeText(t))
	}
	root := findElement(doc, atom.Body)
	if root == nil {
		root = doc
	}
	return title, extractText(root), nil
}

// extractText strips markup below n. Block level elements and <br> end a
// line; runs of whitespace inside a line collapse to a single space.
func extractText(n *html.Node) string {
	var lines []string
	var line strings.Builder

	flush := func() {
		if s := collapseSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Template:
				return
			case atom.Br:
				flush()
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(n)
	flush()

	return strings.Join(lines, "\n")
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Dd: true, atom.Dt: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Table: true,
	atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Figure: true,
	atom.Figcaption: true, atom.Hr: true, atom.Body: true,
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
