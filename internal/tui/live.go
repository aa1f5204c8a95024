// Package tui is the live race view: the simulated car on its track,
// with the controller's telemetry alongside.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/drivelab/internal/sim"
	"github.com/san-kum/drivelab/internal/telemetry"
	"github.com/san-kum/drivelab/internal/track"
)

const (
	canvasWidth  = 72
	canvasHeight = 24
	trailLen     = 60
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).Width(36)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	lostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps the simulation one control cycle per tick and renders the
// car against the track.
type Model struct {
	sim       *sim.Simulator
	trk       *track.Track
	trackName string

	x0    sim.State
	state sim.State
	t     float64
	dt    float64
	frame int

	rec telemetry.Record
	u   sim.Control

	trail   []struct{ px, py int }
	running bool
	err     error

	// world-to-canvas transform, fixed at startup
	minX, minY, scale float64
}

func NewModel(s *sim.Simulator, trk *track.Track, trackName string, x0 sim.State, dt float64) Model {
	m := Model{
		sim:       s,
		trk:       trk,
		trackName: trackName,
		x0:        x0.Clone(),
		state:     x0.Clone(),
		dt:        dt,
		running:   true,
		trail:     make([]struct{ px, py int }, 0, trailLen),
	}
	m.fitBounds()
	return m
}

func (m *Model) fitBounds() {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < m.trk.Len(); i++ {
		x, y := m.trk.Waypoint(i)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	pad := 2.0
	minX, minY = minX-pad, minY-pad
	maxX, maxY = maxX+pad, maxY+pad

	sx := float64(canvasWidth-1) / (maxX - minX)
	sy := float64(canvasHeight-1) / (maxY - minY)
	m.minX, m.minY = minX, minY
	m.scale = math.Min(sx, sy*2) // terminal cells are ~2x taller than wide
}

func (m *Model) project(x, y float64) (int, int) {
	px := int((x - m.minX) * m.scale)
	py := canvasHeight - 1 - int((y-m.minY)*m.scale/2)
	return px, py
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(m.dt*float64(time.Second)), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.state = m.x0.Clone()
			m.t = 0
			m.frame = 0
			m.trail = m.trail[:0]
			m.sim.Reset()
			m.err = nil
		}
		return m, nil

	case TickMsg:
		if m.running && m.err == nil {
			next, rec, u, err := m.sim.Step(m.state, m.t, m.dt, m.frame)
			if err != nil {
				m.err = err
				m.running = false
			} else {
				m.state = next
				m.rec = rec
				m.u = u
				m.t += m.dt
				m.frame++

				px, py := m.project(m.state[0], m.state[1])
				m.trail = append(m.trail, struct{ px, py int }{px, py})
				if len(m.trail) > trailLen {
					m.trail = m.trail[1:]
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}
	set := func(px, py int, c rune) {
		if px >= 0 && px < canvasWidth && py >= 0 && py < canvasHeight {
			canvas[py][px] = c
		}
	}

	for i := 0; i < m.trk.Len(); i++ {
		x, y := m.trk.Waypoint(i)
		px, py := m.project(x, y)
		set(px, py, '·')
	}
	for _, pt := range m.trail {
		set(pt.px, pt.py, '.')
	}

	cx, cy := m.project(m.state[0], m.state[1])
	set(cx, cy, headingRune(m.state[2]))

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}

	canvasView := canvasStyle.Render(b.String())
	statsView := statsStyle.Render(m.statsView())
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	help := helpStyle.Render("space pause · r reset · q quit")
	return main + "\n" + help + "\n"
}

func (m Model) statsView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("drivelab · %s", m.trackName)))
	b.WriteByte('\n')

	row := func(label string, format string, args ...any) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(fmt.Sprintf(format, args...)))
		b.WriteByte('\n')
	}

	row("t", "%7.2f s", m.t)
	row("vr", "%7.2f m/s", m.rec.VR)
	row("target_v", "%7.2f m/s", m.rec.TargetV)
	row("w", "%7.2f rad/s", m.rec.W)
	row("target_w", "%7.2f rad/s", m.rec.TargetW)
	row("ye", "%7.3f m", m.rec.YE)
	row("psie", "%7.3f rad", m.rec.PsiE)
	row("k", "%7.3f 1/m", m.rec.K)
	row("throttle", "%7.2f", m.u.Throttle)
	row("steering", "%7.2f", m.u.Steering)

	if m.rec.TargetK == 2 && m.rec.K != 2 {
		b.WriteByte('\n')
		b.WriteString(lostStyle.Render("LINE LOST"))
		b.WriteByte('\n')
	}
	if m.err != nil {
		b.WriteByte('\n')
		b.WriteString(lostStyle.Render(m.err.Error()))
		b.WriteByte('\n')
	}
	if !m.running && m.err == nil {
		b.WriteByte('\n')
		b.WriteString(valueStyle.Render("paused"))
		b.WriteByte('\n')
	}
	return b.String()
}

func headingRune(theta float64) rune {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	switch {
	case theta < math.Pi/4 || theta >= 7*math.Pi/4:
		return '>'
	case theta < 3*math.Pi/4:
		return '^'
	case theta < 5*math.Pi/4:
		return '<'
	default:
		return 'v'
	}
}
