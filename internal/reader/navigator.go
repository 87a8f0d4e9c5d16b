// Package reader loads books and keeps track of the chapter being read.
package reader

// Navigator holds a book's chapters and the current chapter cursor.
// Moves past either end are silently ignored; there is no wraparound.
type Navigator struct {
	chapters []Chapter
	index    int
}

// NewNavigator creates a Navigator positioned on the first chapter of book.
func NewNavigator(book *Book) *Navigator {
	n := &Navigator{index: -1}
	if book != nil {
		n.chapters = book.Chapters
	}
	if len(n.chapters) > 0 {
		n.index = 0
	}
	return n
}

// Len returns the number of chapters.
func (n *Navigator) Len() int {
	return len(n.chapters)
}

// Index returns the current chapter index, or -1 when there are no chapters.
func (n *Navigator) Index() int {
	return n.index
}

// Current returns the chapter under the cursor.
func (n *Navigator) Current() (Chapter, bool) {
	if n.index < 0 || n.index >= len(n.chapters) {
		return Chapter{}, false
	}
	return n.chapters[n.index], true
}

// Previous moves to the previous chapter. It reports whether the cursor moved.
func (n *Navigator) Previous() bool {
	if n.index > 0 {
		n.index--
		return true
	}
	return false
}

// Next moves to the next chapter. It reports whether the cursor moved.
func (n *Navigator) Next() bool {
	if n.index >= 0 && n.index < len(n.chapters)-1 {
		n.index++
		return true
	}
	return false
}

// Select jumps to chapter i. Out of range indices are ignored.
func (n *Navigator) Select(i int) bool {
	if i < 0 || i >= len(n.chapters) {
		return false
	}
	n.index = i
	return true
}

// AtEnd reports whether the cursor is on the last chapter.
func (n *Navigator) AtEnd() bool {
	return n.index == len(n.chapters)-1
}
