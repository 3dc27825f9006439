package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/polyclock-go/internal/clock"
)

// A terminal cell covers CellWidth x CellHeight units of clock space, so a
// default clock (radius 80) spans roughly 20 columns and 10 rows.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

type cell struct {
	ch    rune
	style lipgloss.Style
	set   bool
}

type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &canvas{w: w, h: h, cells: make([]cell, w*h)}
}

func (c *canvas) put(col, row int, ch rune, style lipgloss.Style) {
	if col < 0 || row < 0 || col >= c.w || row >= c.h {
		return
	}
	c.cells[row*c.w+col] = cell{ch: ch, style: style, set: true}
}

func (c *canvas) text(col, row int, s string, style lipgloss.Style) {
	for i, r := range []rune(s) {
		c.put(col+i, row, r, style)
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.h; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.w; col++ {
			cl := c.cells[row*c.w+col]
			if !cl.set {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(cl.style.Render(string(cl.ch)))
		}
	}
	return b.String()
}

// toCell maps clock space to a canvas cell.
func toCell(x, y float64) (col, row int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

// fromCell maps the centre of a canvas cell back to clock space.
func fromCell(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * CellWidth, (float64(row) + 0.5) * CellHeight
}

// ringPoint returns the cell at fraction p of a turn around s, starting at
// twelve o'clock and running clockwise, scaled by k of the radius.
func ringPoint(s clock.State, p, k float64) (col, row int) {
	a := 2 * math.Pi * p
	x := s.X + k*s.Radius*math.Sin(a)
	y := s.Y - k*s.Radius*math.Cos(a)
	return toCell(x, y)
}

func clockColor(s clock.State) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", s.Color[0], s.Color[1], s.Color[2]))
}

// drawClock paints one clock: the progress ring, a dot per beat, and the
// handle with the recording status.
func drawClock(cv *canvas, s clock.State, selected bool) {
	color := clockColor(s)
	ring := lipgloss.NewStyle().Foreground(color)
	faint := lipgloss.NewStyle().Foreground(color).Faint(true)
	if selected {
		ring = ring.Bold(true)
	}

	steps := int(2 * math.Pi * s.Radius / CellWidth * 2)
	if steps < 24 {
		steps = 24
	}
	for i := 0; i < steps; i++ {
		p := float64(i) / float64(steps)
		done := p <= s.Phase
		if !s.Filling {
			done = !done
		}
		col, row := ringPoint(s, p, 1)
		if done {
			cv.put(col, row, '•', ring)
		} else {
			cv.put(col, row, '·', faint)
		}
	}

	if s.Length > 0 {
		for i, b := range s.Beats {
			col, row := ringPoint(s, b/float64(s.Length), 0.7)
			if s.Lit[i] {
				cv.put(col, row, '◉', ring.Bold(true).Reverse(true))
			} else {
				cv.put(col, row, '●', ring)
			}
		}
	}

	col, row := toCell(s.X, s.Y)
	switch s.Recording {
	case clock.CountingIn:
		n := int(math.Ceil(s.CountIn))
		if n < 1 {
			n = 1
		}
		cv.put(col, row, rune('0'+n%10), ring.Bold(true))
	case clock.Recording:
		cv.put(col, row, 'R', lipgloss.NewStyle().Foreground(lipgloss.Color("#ff3b3b")).Bold(true))
	default:
		cv.put(col, row, '+', ring)
	}

	label := s.Sample
	cv.text(col-len([]rune(label))/2, row+1, label, faint)
}
