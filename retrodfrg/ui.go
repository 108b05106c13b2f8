// Package retrodfrg provides a generic terminal UI for displaying progress and status information.
// It is designed to be completely agnostic of the underlying task being performed.
package retrodfrg

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// ErrInterrupted is returned when the user requests to stop the operation.
var ErrInterrupted = errors.New("interrupted")

// UI provides a terminal-based user interface for displaying customizable information.
// It supports title, summary lines, legend, phases, and status lines.
type UI struct {
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once
	// restoreTerm is set for real terminals, which need the alternate
	// screen reset on Close.
	restoreTerm bool
	closed      bool

	title        string
	phases       []string
	phaseDoneMap map[string]bool
	summaryLines []string
	legendLines  []string
	statusLines  []string

	// Visual progress map (provided by caller, UI just renders it)
	progressMapLines []string
}

// NewUI creates and initializes a new UI instance on the controlling terminal.
func NewUI() (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	u, err := NewUIWithScreen(s)
	if err != nil {
		return nil, err
	}
	u.restoreTerm = true
	return u, nil
}

// NewUIWithScreen initializes a UI on an existing screen, e.g. a
// tcell.SimulationScreen. It starts the event loop for handling user input.
func NewUIWithScreen(s tcell.Screen) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &UI{
		s:            s,
		stopChan:     make(chan struct{}),
		phaseDoneMap: make(map[string]bool),
	}
	go u.eventLoop()
	return u, nil
}

// Close closes the UI and restores the terminal to its original state.
func (u *UI) Close() {
	if u.closed {
		return
	}
	u.closed = true
	u.RequestStop()
	u.s.Fini()
	if u.restoreTerm {
		fmt.Print("\033[?1049l\033[?25h")
	}
}

// RequestStop signals that the user has requested to stop the current operation.
// It can be called multiple times safely.
func (u *UI) RequestStop() {
	u.once.Do(func() {
		close(u.stopChan)
		_ = u.s.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

// IsStopped returns true if the user has requested to stop the operation.
func (u *UI) IsStopped() bool {
	select {
	case <-u.stopChan:
		return true
	default:
		return false
	}
}

// Size returns the current screen width and height.
func (u *UI) Size() (width, height int) {
	if u.closed {
		return 0, 0
	}
	return u.s.Size()
}

func putStr(s tcell.Screen, x, y int, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, tcell.StyleDefault)
	}
}

// section draws a ruled header with label at row y.
func section(s tcell.Screen, y, w int, label string) {
	putStr(s, 0, y, strings.Repeat("─", w))
	putStr(s, 2, y, " "+label+" ")
}

// drawLines puts lines from row y onward, at most limit rows and never past
// the bottom of the screen. It returns the next free row.
func drawLines(s tcell.Screen, y, limit int, lines []string) int {
	_, h := s.Size()
	for i := 0; i < len(lines) && i < limit && y < h; i++ {
		putStr(s, 0, y, lines[i])
		y++
	}
	return y
}

func (u *UI) phaseLine() string {
	var b strings.Builder
	for i, p := range u.phases {
		if i > 0 {
			b.WriteByte(' ')
		}
		mark := ' '
		if u.phaseDoneMap[strings.ToLower(p)] {
			mark = '✓'
		}
		fmt.Fprintf(&b, "[%c]%s", mark, p)
	}
	return b.String()
}

// LayoutAndDraw redraws the entire UI with the current state.
func (u *UI) LayoutAndDraw() {
	if u.closed {
		return
	}
	s := u.s
	s.Clear()
	w, h := s.Size()

	y := 0
	if u.title != "" {
		putStr(s, 0, y, strings.Repeat("═", w))
		putStr(s, max(0, (w-len([]rune(u.title)))/2), y, u.title)
		y++
	}
	y = drawLines(s, y, h, u.summaryLines)
	y = drawLines(s, y, h, u.legendLines)

	if len(u.progressMapLines) > 0 {
		// phase and status keep their rows
		y = drawLines(s, y, max(1, h-y-7), u.progressMapLines)
	}

	if len(u.phases) > 0 && y < h {
		section(s, y, w, "Phase")
		y = drawLines(s, y+1, 1, []string{u.phaseLine()})
	}
	if len(u.statusLines) > 0 && y < h {
		section(s, y, w, "Status")
		drawLines(s, y+1, h, u.statusLines)
	}

	s.Show()
}

// SetPhaseDone marks the specified phase as completed.
// The phase name is case-insensitive.
func (u *UI) SetPhaseDone(p string) {
	if u.phaseDoneMap == nil {
		u.phaseDoneMap = make(map[string]bool)
	}
	u.phaseDoneMap[strings.ToLower(p)] = true
}

// SetPhases sets the list of phases to display.
func (u *UI) SetPhases(labels []string) {
	u.phases = append([]string(nil), labels...)
}

// SetTitle sets the title displayed at the top of the UI.
func (u *UI) SetTitle(t string) {
	u.title = t
}

// SetSummaryLines sets the summary/info lines displayed below the title.
func (u *UI) SetSummaryLines(lines []string) {
	u.summaryLines = append([]string(nil), lines...)
}

// SetLegend sets the legend lines displayed below the summary.
func (u *UI) SetLegend(lines []string) {
	u.legendLines = append([]string(nil), lines...)
}

// SetStatusLines sets the status lines displayed at the bottom of the UI.
func (u *UI) SetStatusLines(lines []string) {
	u.statusLines = append([]string(nil), lines...)
}

// SetProgressMap sets the visual progress map lines to display.
// The UI simply renders what is provided - it does not track progress.
func (u *UI) SetProgressMap(lines []string) {
	u.progressMapLines = append([]string(nil), lines...)
}

func (u *UI) eventLoop() {
	s := u.s
	for {
		select {
		case <-u.stopChan:
			return
		default:
		}
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				u.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			return
		case nil:
			return
		}
	}
}
