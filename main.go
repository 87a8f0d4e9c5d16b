//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/metcalfc/hark/internal/narrator"
	"github.com/metcalfc/hark/internal/reader"
	"github.com/metcalfc/hark/internal/speech"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	sentenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Italic(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	readingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("#04B575"))

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF0000")).
			Padding(1, 2).
			Width(60)
)

type keyMap struct {
	Toggle    key.Binding
	Stop      key.Binding
	Next      key.Binding
	Prev      key.Binding
	Select    key.Binding
	Focus     key.Binding
	Open      key.Binding
	TOC       key.Binding
	Search    key.Binding
	Engine    key.Binding
	Voice     key.Binding
	VoiceBack key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Language  key.Binding
	Slow      key.Binding
	Copy      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Stop, k.Next, k.Prev, k.Open, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Stop, k.Next, k.Prev, k.Select, k.Focus},
		{k.Open, k.TOC, k.Search, k.Copy, k.Help, k.Quit},
		{k.Engine, k.Voice, k.VoiceBack, k.Faster, k.Slower, k.Language, k.Slow},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "read/pause")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Next:      key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next chapter")),
		Prev:      key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous chapter")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go to chapter")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
		TOC:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search chapter")),
		Engine:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "engine")),
		Voice:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "next voice")),
		VoiceBack: key.NewBinding(key.WithKeys("V"), key.WithHelp("V", "previous voice")),
		Faster:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		Language:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "language")),
		Slow:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "slow cloud voice")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy chapter")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type mode int

const (
	modeBrowse mode = iota
	modeOpen
	modeTOC
	modeSearch
	modeResults
	modeError
)

type pane int

const (
	paneChapters pane = iota
	paneText
)

type errMsg struct{ err error }

type chapterItem struct {
	index   int
	chapter reader.Chapter
}

func (i chapterItem) Title() string { return i.chapter.Label(i.index) }

func (i chapterItem) Description() string {
	return humanize.Comma(int64(len(strings.Fields(i.chapter.Text)))) + " words"
}

func (i chapterItem) FilterValue() string { return i.Title() }

type tocItem struct {
	entry reader.TOCEntry
}

func (i tocItem) Title() string       { return strings.Repeat("  ", i.entry.Level) + i.entry.Title }
func (i tocItem) Description() string { return fmt.Sprintf("Chapter %d", i.entry.Chapter+1) }
func (i tocItem) FilterValue() string { return i.entry.Title }

type matchItem struct {
	match reader.Match
}

func (i matchItem) Title() string { return i.match.Context }
func (i matchItem) Description() string {
	return "at character " + humanize.Comma(int64(i.match.Offset+1))
}
func (i matchItem) FilterValue() string { return i.match.Context }

type model struct {
	narr      *narrator.Narrator
	voices    []speech.Voice
	languages []speech.Language
	path      string

	chapters list.Model
	toc      list.Model
	results  list.Model
	text     viewport.Model
	input    textinput.Model
	help     help.Model
	keys     keyMap

	mode     mode
	focus    pane
	book     *reader.Book
	index    int
	state    narrator.State
	params   speech.Params
	sentence *narrator.SentenceStarted
	found    int // chapter the search results belong to
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

func newModel(n *narrator.Narrator, voices []speech.Voice, path string) model {
	input := textinput.New()

	if len(voices) == 0 {
		voices = []speech.Voice{speech.PlaceholderVoice}
	}

	m := model{
		narr:      n,
		voices:    voices,
		languages: speech.Languages(),
		path:      path,
		chapters:  newList("Chapters"),
		toc:       newList("Contents"),
		results:   newList("Matches"),
		text:      viewport.New(0, 0),
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
		index:     -1,
		params:    n.Params(),
		width:     80,
		height:    24,
	}
	m.resize()
	return m
}

func (m model) Init() tea.Cmd {
	if m.path == "" {
		return nil
	}
	return openCmd(m.narr, m.path)
}

func openCmd(n *narrator.Narrator, path string) tea.Cmd {
	return func() tea.Msg {
		p, err := homedir.Expand(strings.TrimSpace(path))
		if err != nil {
			return errMsg{err}
		}
		if err := n.Open(p); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// narrate runs a narrator call off the event loop, since starting a
// chapter may wait for the previous one to wind down.
func narrate(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if ch, ok := m.narr.Current(); ok {
			m.setText(ch)
		}
		return m, nil

	case narrator.BookLoaded:
		m.book = msg.Book
		m.chapters.SetItems(chapterItems(msg.Book))
		m.toc.SetItems(tocItems(msg.Book))
		m.mode = modeBrowse
		m.sentence = nil
		m.status = "Opened " + filepath.Base(msg.Book.Path)
		return m, nil

	case narrator.ChapterChanged:
		m.index = msg.Index
		m.chapters.Select(msg.Index)
		m.setText(msg.Chapter)
		m.sentence = nil
		return m, nil

	case narrator.StateChanged:
		m.state = msg.State
		if msg.State == narrator.Idle {
			m.sentence = nil
		}
		return m, nil

	case narrator.SentenceStarted:
		if msg.Chapter == m.index {
			m.sentence = &msg
		}
		return m, nil

	case narrator.Failed:
		m.showError(msg.Err)
		return m, nil

	case errMsg:
		m.showError(msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) showError(err error) {
	log.Error("tui: error", "err", err)
	m.err = err
	m.mode = modeError
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeError:
		m.err = nil
		m.mode = modeBrowse
		return m, nil

	case modeOpen, modeSearch:
		switch msg.String() {
		case "enter":
			prompt := m.mode
			m.mode = modeBrowse
			m.input.Blur()
			if prompt == modeSearch {
				m.search(m.input.Value())
				return m, nil
			}
			return m, openCmd(m.narr, m.input.Value())
		case "esc":
			m.mode = modeBrowse
			m.input.Blur()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeTOC:
		switch {
		case msg.String() == "enter":
			m.mode = modeBrowse
			if item, ok := m.toc.SelectedItem().(tocItem); ok {
				chapter := item.entry.Chapter
				return m, narrate(func() error { m.narr.Select(chapter); return nil })
			}
			return m, nil
		case msg.String() == "esc", key.Matches(msg, m.keys.TOC):
			m.mode = modeBrowse
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.toc, cmd = m.toc.Update(msg)
		return m, cmd

	case modeResults:
		switch {
		case msg.String() == "enter":
			m.mode = modeBrowse
			if item, ok := m.results.SelectedItem().(matchItem); ok {
				m.jumpTo(item.match)
			}
			return m, nil
		case msg.String() == "esc", key.Matches(msg, m.keys.Search):
			m.mode = modeBrowse
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	n := m.narr
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		return m, narrate(n.Toggle)

	case key.Matches(msg, m.keys.Stop):
		return m, narrate(func() error { n.Stop(); return nil })

	case key.Matches(msg, m.keys.Next):
		return m, narrate(func() error { n.Next(); return nil })

	case key.Matches(msg, m.keys.Prev):
		return m, narrate(func() error { n.Previous(); return nil })

	case key.Matches(msg, m.keys.Select) && m.focus == paneChapters:
		i := m.chapters.Index()
		return m, narrate(func() error { n.Select(i); return nil })

	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneChapters {
			m.focus = paneText
		} else {
			m.focus = paneChapters
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		return m, m.prompt(modeOpen, "Open: ", "path/to/book.epub")

	case key.Matches(msg, m.keys.Search):
		if _, ok := n.Current(); !ok {
			m.status = "Open a book to search"
			return m, nil
		}
		return m, m.prompt(modeSearch, "Search: ", "text in this chapter")

	case key.Matches(msg, m.keys.TOC):
		if m.book != nil && len(m.book.TOC) > 0 {
			m.mode = modeTOC
		} else {
			m.status = "No table of contents"
		}
		return m, nil

	case key.Matches(msg, m.keys.Engine):
		p := m.params
		if p.Engine == speech.KindSystem {
			p.Engine = speech.KindCloud
		} else {
			p.Engine = speech.KindSystem
		}
		m.setParams(p)
		return m, nil

	case key.Matches(msg, m.keys.Voice), key.Matches(msg, m.keys.VoiceBack):
		step := 1
		if key.Matches(msg, m.keys.VoiceBack) {
			step = -1
		}
		p := m.params
		p.VoiceIndex = (p.VoiceIndex + step + len(m.voices)) % len(m.voices)
		m.setParams(p)
		return m, nil

	case key.Matches(msg, m.keys.Faster), key.Matches(msg, m.keys.Slower):
		p := m.params
		if key.Matches(msg, m.keys.Faster) {
			p.Rate = min(speech.MaxRate, p.Rate+1)
		} else {
			p.Rate = max(speech.MinRate, p.Rate-1)
		}
		m.setParams(p)
		return m, nil

	case key.Matches(msg, m.keys.Language):
		p := m.params
		p.Language = m.nextLanguage(p.Language)
		m.setParams(p)
		return m, nil

	case key.Matches(msg, m.keys.Slow):
		p := m.params
		p.Slow = !p.Slow
		m.setParams(p)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		ch, ok := n.Current()
		if !ok {
			return m, nil
		}
		if err := clipboard.WriteAll(ch.Text); err != nil {
			m.showError(fmt.Errorf("unable to copy: %w", err))
			return m, nil
		}
		m.status = "Copied chapter to clipboard"
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == paneChapters {
		m.chapters, cmd = m.chapters.Update(msg)
	} else {
		m.text, cmd = m.text.Update(msg)
	}
	return m, cmd
}

func (m *model) prompt(md mode, prompt, placeholder string) tea.Cmd {
	m.mode = md
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.resize()
	return m.input.Focus()
}

// search looks for query in the current chapter and lists the matches.
func (m *model) search(query string) {
	ch, ok := m.narr.Current()
	if !ok || strings.TrimSpace(query) == "" {
		return
	}
	matches := reader.Search(ch.Text, query)
	if len(matches) == 0 {
		m.status = fmt.Sprintf("No matches for %q", query)
		return
	}

	items := make([]list.Item, len(matches))
	for i, match := range matches {
		items[i] = matchItem{match: match}
	}
	m.results.SetItems(items)
	m.results.Select(0)
	m.results.Title = fmt.Sprintf("%s %s for %q", humanize.Comma(int64(len(matches))), plural(len(matches), "match", "matches"), query)
	m.found = m.index
	m.mode = modeResults
}

// jumpTo scrolls the text pane to the line holding match.
func (m *model) jumpTo(match reader.Match) {
	ch, ok := m.narr.Current()
	if !ok || m.found != m.index {
		m.status = "The chapter changed since the search"
		return
	}
	r := []rune(ch.Text)
	prefix := wordwrap.String(string(r[:min(match.Offset, len(r))]), max(m.text.Width-1, 10))
	m.text.SetYOffset(strings.Count(prefix, "\n"))
	m.focus = paneText
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (m *model) setParams(p speech.Params) {
	if err := m.narr.SetParams(p); err != nil {
		m.showError(err)
		return
	}
	m.params = p
	if m.state != narrator.Idle {
		m.status = "Settings apply from the next chapter"
	} else {
		m.status = ""
	}
}

func (m model) nextLanguage(code string) string {
	for i, l := range m.languages {
		if l.Code == code {
			return m.languages[(i+1)%len(m.languages)].Code
		}
	}
	return m.languages[0].Code
}

func chapterItems(book *reader.Book) []list.Item {
	items := make([]list.Item, len(book.Chapters))
	for i, ch := range book.Chapters {
		items[i] = chapterItem{index: i, chapter: ch}
	}
	return items
}

func tocItems(book *reader.Book) []list.Item {
	items := make([]list.Item, len(book.TOC))
	for i, e := range book.TOC {
		items[i] = tocItem{entry: e}
	}
	return items
}

func (m *model) setText(ch reader.Chapter) {
	text := ch.Text
	if text == "" {
		text = "(this chapter has no text)"
	}
	m.text.SetContent(wordwrap.String(text, max(m.text.Width-1, 10)))
	m.text.GotoTop()
}

// resize lays out the panes: header, body, status line and help.
func (m *model) resize() {
	m.help.Width = m.width
	helpHeight := lipgloss.Height(m.help.View(m.keys))

	bodyHeight := max(m.height-2-helpHeight, 3)
	innerHeight := bodyHeight - 2

	listWidth := max(m.width/3, 20)
	textWidth := max(m.width-listWidth-4, 10)

	m.chapters.SetSize(listWidth, innerHeight)
	m.toc.SetSize(listWidth, innerHeight)
	m.results.SetSize(listWidth, innerHeight)
	m.text.Width = textWidth
	m.text.Height = innerHeight
	m.input.Width = max(m.width-len(m.input.Prompt)-2, 10)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeError {
		box := errorBoxStyle.Render(pausedStyle.Render("Error") + "\n\n" + m.err.Error() + "\n\n" + statusStyle.Render("press any key"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.bodyView())
	sb.WriteString("\n")
	if m.mode == modeOpen || m.mode == modeSearch {
		sb.WriteString(m.input.View())
	} else {
		sb.WriteString(m.statusView())
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m model) headerView() string {
	var state string
	switch m.state {
	case narrator.Reading:
		state = readingStyle.Render("[READING]")
	case narrator.Paused:
		state = pausedStyle.Render("[PAUSED]")
	default:
		state = idleStyle.Render("[IDLE]")
	}

	name := "no book"
	if m.book != nil {
		name = m.book.Name()
		if m.index >= 0 {
			name += fmt.Sprintf(" · chapter %d/%d", m.index+1, len(m.book.Chapters))
		}
	}
	return titleStyle.Render("hark") + " " + statusStyle.Render(name) + " " + state
}

func (m model) bodyView() string {
	left, right := paneStyle, paneStyle
	if m.mode == modeTOC || m.mode == modeResults || m.focus == paneChapters {
		left = focusedPaneStyle
	} else {
		right = focusedPaneStyle
	}

	var side string
	switch {
	case m.mode == modeTOC:
		side = m.toc.View()
	case m.mode == modeResults:
		side = m.results.View()
	case m.book == nil:
		side = statusStyle.Render("Press o to open a book")
	default:
		side = m.chapters.View()
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left.Width(m.chapters.Width()).Height(m.text.Height).Render(side),
		right.Render(m.text.View()),
	)
}

func (m model) statusView() string {
	parts := []string{m.engineSummary()}
	if m.sentence != nil {
		parts = append(parts, fmt.Sprintf("%d/%d", m.sentence.Index+1, m.sentence.Total))
	}
	line := statusStyle.Render(strings.Join(parts, " · "))

	switch {
	case m.sentence != nil:
		line += sentenceStyle.Render(truncate(m.sentence.Text, m.width-lipgloss.Width(line)-1))
	case m.status != "":
		line += statusStyle.Render(m.status)
	}
	return line
}

func (m model) engineSummary() string {
	p := m.params
	if p.Engine == speech.KindCloud {
		s := "cloud · " + p.Language
		if p.Slow {
			s += " · slow"
		}
		return s
	}
	voice := fmt.Sprintf("voice %d", p.VoiceIndex)
	if p.VoiceIndex < len(m.voices) {
		voice = m.voices[p.VoiceIndex].Name
	}
	return fmt.Sprintf("system · %s · rate %+d", voice, p.Rate)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func runUI(s settings, path string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("hark needs a terminal (build with -tags gui for the window version)")
	}

	factory := speech.NewFactory(s.Binaries)
	voices := factory.Voices(context.Background())

	var p *tea.Program
	narr, err := narrator.New(factory, s.Params, func(e narrator.Event) { p.Send(e) })
	if err != nil {
		return err
	}

	p = tea.NewProgram(newModel(narr, voices, path), tea.WithAltScreen())
	_, err = p.Run()
	narr.Close()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}
