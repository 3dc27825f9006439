package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	polyclock "github.com/cbegin/polyclock-go"
	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/ensemble"
	"github.com/cbegin/polyclock-go/internal/input"
)

// FrameRate is how often the view redraws.
const FrameRate = 30

const (
	headerLines = 2
	footerLines = 3
	tempoStep   = 5
	volumeStep  = 0.05
)

// Engine is the part of *polyclock.Engine the front end drives.
type Engine interface {
	Frame() []clock.State
	PointerDown(x, y float64) (uuid.UUID, clock.Action)
	Key(code string)
	Tempo() float64
	SetTempo(bpm float64)
	MasterVolume() float64
	SetMasterVolume(v float64)
	OutputLatency() float64
	Do(fn func(ens *ensemble.Ensemble)) error
	Watch() <-chan polyclock.Event
}

type Model struct {
	engine Engine
	events <-chan polyclock.Event

	width  int
	height int
	states []clock.State

	selected uuid.UUID
	// adjusting is the Volume, Length or Snapping sector last clicked on
	// the selected clock; arrows and the wheel drive it until Esc.
	adjusting clock.Action
	dragging  bool

	status   string
	quitting bool
}

type FrameMsg time.Time

type EventMsg polyclock.Event

func NewModel(engine Engine) Model {
	return Model{
		engine: engine,
		events: engine.Watch(),
		width:  80,
		height: 24,
		states: engine.Frame(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/FrameRate, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// ListenForEvents waits for the next engine event.
func ListenForEvents(ch <-chan polyclock.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), ListenForEvents(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case FrameMsg:
		m.states = m.engine.Frame()
		if m.selected != uuid.Nil && m.find(m.selected) < 0 {
			m.selected = uuid.Nil
			m.adjusting = clock.ActionNone
			m.dragging = false
		}
		return m, tick()

	case EventMsg:
		m.status = describeEvent(polyclock.Event(msg))
		return m, ListenForEvents(m.events)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// every printable key also reaches the recording listeners
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		for _, r := range msg.Runes {
			if code := input.CodeFromRune(r); code != "" {
				m.engine.Key(code)
			}
		}
		if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
			m.engine.Key("Space")
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "+", "=":
		m.engine.SetTempo(m.engine.Tempo() + tempoStep)

	case "-", "_":
		m.engine.SetTempo(m.engine.Tempo() - tempoStep)

	case ".":
		m.engine.SetMasterVolume(m.engine.MasterVolume() + volumeStep)

	case ",":
		m.engine.SetMasterVolume(m.engine.MasterVolume() - volumeStep)

	case "tab":
		m.selectNext()

	case "n":
		x, y := fromCell(m.width/2, m.canvasHeight()/2)
		id, _ := m.engine.PointerDown(x, y)
		m.selected = id

	case "r":
		m.withSelected(func(c *clock.Clock) { c.RecordBeats() })

	case "s":
		m.withSelected(func(c *clock.Clock) { c.NextSample() })

	case "x", "delete":
		m.withSelected(func(c *clock.Clock) { c.Delete() })

	case "up", "right":
		m.adjust(1)

	case "down", "left":
		m.adjust(-1)

	case "esc", "enter":
		m.adjusting = clock.ActionNone
		m.status = ""
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := fromCell(msg.X, msg.Y-headerLines)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.adjust(1)

	case msg.Button == tea.MouseButtonWheelDown:
		m.adjust(-1)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.Y < headerLines || msg.Y >= headerLines+m.canvasHeight() {
			return
		}
		id, action := m.engine.PointerDown(x, y)
		m.selected = id
		m.adjusting = clock.ActionNone
		switch action {
		case clock.ActionMove:
			m.dragging = true
		case clock.ActionVolume, clock.ActionLength, clock.ActionSnapping:
			m.adjusting = action
			m.status = fmt.Sprintf("%s: ↑/↓ or wheel, esc when done", strings.ToLower(action.String()))
		}

	case msg.Action == tea.MouseActionMotion && m.dragging:
		m.withSelected(func(c *clock.Clock) { c.SetPosition(x, y) })

	case msg.Action == tea.MouseActionRelease:
		m.dragging = false
	}
}

func (m *Model) adjust(delta int) {
	switch m.adjusting {
	case clock.ActionVolume:
		m.withSelected(func(c *clock.Clock) { c.AdjustVolume(volumeStep * float64(delta)) })
	case clock.ActionLength:
		m.withSelected(func(c *clock.Clock) { c.AdjustLength(delta) })
	case clock.ActionSnapping:
		m.withSelected(func(c *clock.Clock) { c.AdjustDivisions(delta) })
	}
}

func (m *Model) withSelected(fn func(c *clock.Clock)) {
	if m.selected == uuid.Nil {
		return
	}
	id := m.selected
	m.engine.Do(func(ens *ensemble.Ensemble) {
		if c := ens.Find(id); c != nil && !c.ToDelete() {
			fn(c)
		}
	})
}

func (m *Model) selectNext() {
	if len(m.states) == 0 {
		m.selected = uuid.Nil
		return
	}
	i := m.find(m.selected)
	m.selected = m.states[(i+1)%len(m.states)].ID
	m.adjusting = clock.ActionNone
}

func (m Model) find(id uuid.UUID) int {
	for i, s := range m.states {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) canvasHeight() int {
	h := m.height - headerLines - footerLines
	if h < 1 {
		h = 1
	}
	return h
}

func describeEvent(ev polyclock.Event) string {
	id := ev.ClockID.String()[:8]
	switch ev.Kind {
	case polyclock.EventClockAdded:
		return "added clock " + id
	case polyclock.EventClockRemoved:
		return "removed clock " + id
	case polyclock.EventRecording:
		switch ev.Recording {
		case clock.CountingIn:
			return "clock " + id + " counting in"
		case clock.Recording:
			return "clock " + id + " recording"
		default:
			return "clock " + id + " recorded"
		}
	}
	return ""
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))

	header := headerStyle.Render(fmt.Sprintf("polyclock  %3.0fbpm  vol:%3.0f%%  clocks:%d  lat:%.0fms",
		m.engine.Tempo(), m.engine.MasterVolume()*100, len(m.states), m.engine.OutputLatency()*1000))

	cv := newCanvas(m.width, m.canvasHeight())
	for _, s := range m.states {
		drawClock(cv, s, s.ID == m.selected)
	}

	var sel string
	if i := m.find(m.selected); i >= 0 {
		s := m.states[i]
		sel = fmt.Sprintf("%s  len:%d  1/%d  vol:%.0f%%  ", s.Sample, s.Length, s.Divisions, s.Volume*100)
	}

	help := dimStyle.Render("click:add/menu  drag centre:move  n:new  tab:select  r:rec  s:sample  x:delete  +/-:tempo  ,/.:vol  q:quit")

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(cv.String())
	out.WriteString("\n")
	out.WriteString(statusStyle.Render(sel + m.status))
	out.WriteString("\n")
	out.WriteString(help)
	return out.String()
}
