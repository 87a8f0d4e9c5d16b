package reader

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// TOC extracts the table of contents from an EPUB file and resolves each
// entry to the index of the chapter it points into. Entries whose target is
// not one of the book's chapters are dropped. The NCX is preferred; books
// without a usable one fall back to the EPUB 3 navigation document.
func (f *EPUBFormat) TOC(filename string, book *Book) ([]TOCEntry, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	root := rc.Rootfiles[0]
	byHref := chapterIndexByHref(book)

	if data, err := findAndReadNCX(filename, root); err == nil {
		if toc, err := parseNCX(data, byHref); err == nil && len(toc) > 0 {
			return toc, nil
		}
	}
	return navTOC(root, byHref)
}

func parseNCX(data []byte, byHref map[string]int) ([]TOCEntry, error) {
	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return flattenNavPoints(toc.NavMap.NavPoints, byHref, 0), nil
}

// chapterIndexByHref maps both the full and the base href of every chapter
// to its index. The first chapter wins on collisions.
func chapterIndexByHref(book *Book) map[string]int {
	m := make(map[string]int)
	for i, ch := range book.Chapters {
		if ch.Href == "" {
			continue
		}
		if _, ok := m[ch.Href]; !ok {
			m[ch.Href] = i
		}
		if _, ok := m[path.Base(ch.Href)]; !ok {
			m[path.Base(ch.Href)] = i
		}
	}
	return m
}

func findAndReadNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}

	if ncxPath == "" {
		return nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}

	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}

func flattenNavPoints(points []navPoint, byHref map[string]int, level int) []TOCEntry {
	var entries []TOCEntry

	for _, np := range points {
		if chapter, ok := lookupHref(byHref, np.Content.Src); ok {
			entries = append(entries, TOCEntry{
				Title:   strings.TrimSpace(np.Label.Text),
				Chapter: chapter,
				Level:   level,
			})
		}
		if len(np.Children) > 0 {
			entries = append(entries, flattenNavPoints(np.Children, byHref, level+1)...)
		}
	}

	return entries
}

// lookupHref resolves a link to a chapter index, ignoring any fragment.
func lookupHref(byHref map[string]int, href string) (int, bool) {
	if idx := strings.Index(href, "#"); idx != -1 {
		href = href[:idx]
	}
	if href == "" {
		return 0, false
	}
	if chapter, ok := byHref[href]; ok {
		return chapter, true
	}
	chapter, ok := byHref[path.Base(href)]
	return chapter, ok
}

// navTOC reads the table of contents from the first manifest document that
// holds a <nav epub:type="toc">. Documents named like a nav file are tried
// first.
func navTOC(root *epub.Rootfile, byHref map[string]int) ([]TOCEntry, error) {
	var named, rest []*epub.Item
	for i := range root.Manifest.Items {
		item := &root.Manifest.Items[i]
		if !isDocument(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.HREF)), "nav") {
			named = append(named, item)
		} else {
			rest = append(rest, item)
		}
	}

	for _, item := range append(named, rest...) {
		r, err := item.Open()
		if err != nil {
			continue
		}
		doc, err := html.Parse(r)
		r.Close()
		if err != nil {
			continue
		}
		nav := findTOCNav(doc)
		if nav == nil {
			continue
		}
		list := findElement(nav, atom.Ol)
		if list == nil {
			return nil, fmt.Errorf("navigation document %s has no list", item.HREF)
		}
		return navEntries(list, path.Dir(item.HREF), byHref, 0), nil
	}

	return nil, fmt.Errorf("no table of contents found in EPUB")
}

func findTOCNav(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
		for _, a := range n.Attr {
			isType := a.Key == "epub:type" || (a.Namespace == "epub" && a.Key == "type")
			if isType && slices.Contains(strings.Fields(a.Val), "toc") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTOCNav(c); found != nil {
			return found
		}
	}
	return nil
}

// navEntries flattens a navigation list. Links are relative to dir, the
// navigation document's directory. Items without a link still contribute
// their nested lists.
func navEntries(list *html.Node, dir string, byHref map[string]int, level int) []TOCEntry {
	var entries []TOCEntry

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				href := attr(c, "href")
				if href != "" && !strings.HasPrefix(href, "#") {
					href = path.Join(dir, href)
				}
				if chapter, ok := lookupHref(byHref, href); ok {
					entries = append(entries, TOCEntry{
						Title:   collapseSpace(nodeText(c)),
						Chapter: chapter,
						Level:   level,
					})
				}
			case atom.Ol:
				entries = append(entries, navEntries(c, dir, byHref, level+1)...)
			}
		}
	}

	return entries
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
