package reader

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testDoc struct {
	id    string
	title string
	body  string
}

// testEPUB describes a container for buildTestEPUB.
type testEPUB struct {
	docs     []testDoc
	creator  string
	language string

	// cover adds an image to the spine ahead of the documents.
	cover bool

	// nav replaces the NCX with an EPUB 3 navigation document stored in
	// a subdirectory.
	nav bool
}

// writeTestEPUB writes a minimal EPUB 2 container holding docs in spine
// order, with an NCX that lists every document.
func writeTestEPUB(t *testing.T, docs []testDoc) string {
	t.Helper()
	return buildTestEPUB(t, testEPUB{docs: docs, creator: "Test Author", language: "en"})
}

func buildTestEPUB(t *testing.T, opts testEPUB) string {
	t.Helper()

	epubPath := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	write := func(name, content string) {
		t.Helper()
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	mw.Write([]byte("application/epub+zip"))

	write("META-INF/container.xml", `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine, navPoints, navItems strings.Builder
	spineAttr := ` toc="ncx"`
	if opts.nav {
		spineAttr = ""
		manifest.WriteString(`    <item id="nav" href="nav/toc.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	} else {
		manifest.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	}
	if opts.cover {
		manifest.WriteString(`    <item id="cover" href="cover.jpg" media-type="image/jpeg"/>` + "\n")
		spine.WriteString(`    <itemref idref="cover"/>` + "\n")
		write("OEBPS/cover.jpg", "\xff\xd8\xff\xe0")
	}
	for i, d := range opts.docs {
		fmt.Fprintf(&manifest, `    <item id="%s" href="%s.xhtml" media-type="application/xhtml+xml"/>`+"\n", d.id, d.id)
		fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", d.id)
		fmt.Fprintf(&navPoints, `    <navPoint id="np%d" playOrder="%d"><navLabel><text>Part %d</text></navLabel><content src="%s.xhtml"/></navPoint>`+"\n", i, i+1, i+1, d.id)
		fmt.Fprintf(&navItems, `      <li><a href="../%s.xhtml">Part %d</a></li>`+"\n", d.id, i+1)
	}

	var meta strings.Builder
	if opts.creator != "" {
		fmt.Fprintf(&meta, "    <dc:creator>%s</dc:creator>\n", opts.creator)
	}
	if opts.language != "" {
		fmt.Fprintf(&meta, "    <dc:language>%s</dc:language>\n", opts.language)
	}

	write("OEBPS/content.opf", `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
`+meta.String()+`    <dc:identifier id="bookid">test-123</dc:identifier>
  </metadata>
  <manifest>
`+manifest.String()+`  </manifest>
  <spine`+spineAttr+`>
`+spine.String()+`  </spine>
</package>`)

	if opts.nav {
		write("OEBPS/nav/toc.xhtml", `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
  <nav epub:type="landmarks"><ol><li><a href="../`+firstID(opts.docs)+`.xhtml">Start</a></li></ol></nav>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
`+navItems.String()+`    </ol>
  </nav>
</body>
</html>`)
	} else {
		write("OEBPS/toc.ncx", `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
`+navPoints.String()+`  </navMap>
</ncx>`)
	}

	for _, d := range opts.docs {
		head := ""
		if d.title != "" {
			head = "<title>" + d.title + "</title>"
		}
		write("OEBPS/"+d.id+".xhtml", `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>`+head+`</head>
<body>
`+d.body+`
</body>
</html>`)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return epubPath
}

func firstID(docs []testDoc) string {
	if len(docs) == 0 {
		return "missing"
	}
	return docs[0].id
}

func threeChapterDocs() []testDoc {
	return []testDoc{
		{id: "ch1", title: "Beginnings", body: "<h1>One</h1><p>It was a dark night.</p>"},
		{id: "ch2", title: "Middles", body: "<h1>Two</h1><p>Then it <b>rained</b>.</p><p>A lot.</p>"},
		{id: "ch3", body: "<p>The end.</p>"},
	}
}
