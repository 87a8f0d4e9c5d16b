//go:build gui

package main

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"
	"github.com/metcalfc/hark/internal/narrator"
	"github.com/metcalfc/hark/internal/reader"
	"github.com/metcalfc/hark/internal/speech"
)

// gui holds the window's widgets. Every method runs on the fyne main
// thread; narrator events are moved there with fyne.Do.
type gui struct {
	window    fyne.Window
	narr      *narrator.Narrator
	voices    []speech.Voice
	languages []speech.Language

	book    *reader.Book
	index   int
	state   narrator.State
	params  speech.Params
	syncing bool

	chapterList  *widget.List
	chapterTitle *widget.Label
	text         *widget.Label
	scroll       *container.Scroll
	sentence     *widget.Label
	stateLabel   *widget.Label
	readButton   *widget.Button
	stopButton   *widget.Button
	rateLabel    *widget.Label
}

func newGUI(w fyne.Window, voices []speech.Voice) *gui {
	if len(voices) == 0 {
		voices = []speech.Voice{speech.PlaceholderVoice}
	}
	return &gui{
		window:    w,
		voices:    voices,
		languages: speech.Languages(),
		index:     -1,
	}
}

// run calls the narrator off the main thread and reports any error in a
// dialog.
func (g *gui) run(f func() error) {
	go func() {
		if err := f(); err != nil {
			fyne.Do(func() { g.showError(err) })
		}
	}()
}

func (g *gui) showError(err error) {
	log.Error("gui: error", "err", err)
	dialog.ShowError(err, g.window)
}

func (g *gui) handle(e narrator.Event) {
	switch e := e.(type) {
	case narrator.BookLoaded:
		g.book = e.Book
		g.index = -1
		g.chapterList.UnselectAll()
		g.chapterList.Refresh()
		g.window.SetTitle("hark - " + e.Book.Name())

	case narrator.ChapterChanged:
		g.index = e.Index
		g.syncing = true
		g.chapterList.Select(e.Index)
		g.syncing = false
		g.chapterTitle.SetText(e.Chapter.Label(e.Index))
		g.text.SetText(e.Chapter.Text)
		g.scroll.ScrollToTop()
		g.sentence.SetText("")

	case narrator.StateChanged:
		g.state = e.State
		if e.State == narrator.Idle {
			g.sentence.SetText("")
		}
		g.refreshControls()

	case narrator.SentenceStarted:
		if e.Chapter == g.index {
			g.sentence.SetText(fmt.Sprintf("%d/%d  %s", e.Index+1, e.Total, e.Text))
		}

	case narrator.Failed:
		g.showError(e.Err)
	}
}

func (g *gui) refreshControls() {
	g.stateLabel.SetText(g.state.String())
	switch g.state {
	case narrator.Reading:
		g.readButton.SetText("Pause")
		g.readButton.SetIcon(theme.MediaPauseIcon())
		g.stopButton.Enable()
	case narrator.Paused:
		g.readButton.SetText("Resume")
		g.readButton.SetIcon(theme.MediaPlayIcon())
		g.stopButton.Enable()
	default:
		g.readButton.SetText("Read")
		g.readButton.SetIcon(theme.MediaPlayIcon())
		g.stopButton.Disable()
	}
}

func (g *gui) setParams(p speech.Params) {
	if err := g.narr.SetParams(p); err != nil {
		g.showError(err)
		return
	}
	g.params = p
	g.rateLabel.SetText(fmt.Sprintf("Rate %+d", p.Rate))
}

func (g *gui) openDialog() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			g.showError(err)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		_ = r.Close()
		g.run(func() error { return g.narr.Open(path) })
	}, g.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".epub", ".md", ".markdown", ".txt"}))
	d.Show()
}

func (g *gui) content() fyne.CanvasObject {
	g.chapterList = widget.NewList(
		func() int {
			if g.book == nil {
				return 0
			}
			return len(g.book.Chapters)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Chapter")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(g.book.Chapters[id].Label(id))
		},
	)
	g.chapterList.OnSelected = func(id widget.ListItemID) {
		if g.syncing || id == g.index {
			return
		}
		g.run(func() error { g.narr.Select(id); return nil })
	}

	g.chapterTitle = widget.NewLabel("Open a book to begin")
	g.chapterTitle.TextStyle.Bold = true
	g.text = widget.NewLabel("")
	g.text.Wrapping = fyne.TextWrapWord
	g.scroll = container.NewVScroll(g.text)
	g.sentence = widget.NewLabel("")
	g.sentence.Wrapping = fyne.TextWrapWord
	g.sentence.TextStyle.Italic = true
	g.stateLabel = widget.NewLabel(narrator.Idle.String())

	openButton := widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), g.openDialog)
	prevButton := widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), func() {
		g.run(func() error { g.narr.Previous(); return nil })
	})
	nextButton := widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), func() {
		g.run(func() error { g.narr.Next(); return nil })
	})
	g.readButton = widget.NewButtonWithIcon("Read", theme.MediaPlayIcon(), func() {
		g.run(g.narr.Toggle)
	})
	g.stopButton = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		g.run(func() error { g.narr.Stop(); return nil })
	})
	g.stopButton.Disable()

	toolbar := container.NewHBox(openButton, prevButton, g.readButton, g.stopButton, nextButton, layout.NewSpacer(), g.stateLabel)

	left := container.NewBorder(widget.NewLabel("Chapters"), g.settings(), nil, nil, g.chapterList)
	right := container.NewBorder(g.chapterTitle, g.sentence, nil, nil, g.scroll)
	split := container.NewHSplit(left, right)
	split.Offset = 0.33

	return container.NewBorder(toolbar, nil, nil, nil, split)
}

// settings builds the engine controls. Initial values are set before the
// change callbacks are attached.
func (g *gui) settings() fyne.CanvasObject {
	p := g.params

	engine := widget.NewRadioGroup([]string{string(speech.KindSystem), string(speech.KindCloud)}, nil)
	engine.Horizontal = true
	engine.Required = true
	engine.SetSelected(string(p.Engine))
	engine.OnChanged = func(s string) {
		p := g.params
		p.Engine = speech.Kind(s)
		g.setParams(p)
	}

	voiceNames := make([]string, len(g.voices))
	for i, v := range g.voices {
		voiceNames[i] = v.String()
	}
	voice := widget.NewSelect(voiceNames, nil)
	if p.VoiceIndex < len(voiceNames) {
		voice.SetSelectedIndex(p.VoiceIndex)
	}
	voice.OnChanged = func(string) {
		p := g.params
		p.VoiceIndex = voice.SelectedIndex()
		g.setParams(p)
	}

	g.rateLabel = widget.NewLabel(fmt.Sprintf("Rate %+d", p.Rate))
	rate := widget.NewSlider(speech.MinRate, speech.MaxRate)
	rate.Step = 1
	rate.Value = float64(p.Rate)
	rate.OnChangeEnded = func(v float64) {
		p := g.params
		p.Rate = int(v)
		g.setParams(p)
	}

	langNames := make([]string, len(g.languages))
	langIndex := 0
	for i, l := range g.languages {
		langNames[i] = l.Name
		if l.Code == p.Language {
			langIndex = i
		}
	}
	lang := widget.NewSelect(langNames, nil)
	lang.SetSelectedIndex(langIndex)
	lang.OnChanged = func(string) {
		p := g.params
		p.Language = g.languages[lang.SelectedIndex()].Code
		g.setParams(p)
	}

	slow := widget.NewCheck("Slow", nil)
	slow.SetChecked(p.Slow)
	slow.OnChanged = func(b bool) {
		p := g.params
		p.Slow = b
		g.setParams(p)
	}

	return container.New(layout.NewFormLayout(),
		widget.NewLabel("Engine"), engine,
		widget.NewLabel("Voice"), voice,
		g.rateLabel, rate,
		widget.NewLabel("Language"), lang,
		widget.NewLabel(""), slow,
	)
}

func (g *gui) bindKeys() {
	g.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			g.run(g.narr.Toggle)
		case fyne.KeyLeft:
			g.run(func() error { g.narr.Previous(); return nil })
		case fyne.KeyRight:
			g.run(func() error { g.narr.Next(); return nil })
		case fyne.KeyEscape:
			g.run(func() error { g.narr.Stop(); return nil })
		}
	})
}

func runUI(s settings, path string) error {
	factory := speech.NewFactory(s.Binaries)
	voices := factory.Voices(context.Background())

	a := app.New()
	w := a.NewWindow("hark")
	g := newGUI(w, voices)
	g.params = s.Params

	narr, err := narrator.New(factory, s.Params, func(e narrator.Event) {
		fyne.Do(func() { g.handle(e) })
	})
	if err != nil {
		return err
	}
	g.narr = narr

	w.SetContent(g.content())
	g.bindKeys()
	w.Resize(fyne.NewSize(1000, 700))

	if path != "" {
		g.run(func() error { return narr.Open(path) })
	}

	w.ShowAndRun()
	narr.Close()
	return nil
}
