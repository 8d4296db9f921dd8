// Package tui provides the Bubble Tea drawing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/generator"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/session"
	statsPkg "github.com/verte-zerg/kakite/internal/stats"
	"github.com/verte-zerg/kakite/internal/strokedata"
	"github.com/verte-zerg/kakite/internal/validate"
)

const (
	canvasOriginX = 1
	canvasOriginY = 3
	advanceDelay  = 800 * time.Millisecond
	eventBuffer   = 32
)

// StrokeSource resolves reference strokes for a character.
type StrokeSource interface {
	Strokes(ctx context.Context, character string) (model.CharacterStrokes, error)
}

// Store persists practice results.
type Store interface {
	session.ProgressSink
	RecordAttempt(ctx context.Context, a model.StrokeAttempt) (int64, error)
	GetWeakChars(ctx context.Context, window int, typ string) ([]model.CharAggregate, error)
}

// Options configures the practice UI.
type Options struct {
	Config     model.Config
	Validation validate.Config
	Strokes    StrokeSource
	Store      Store
	Generator  *generator.Generator
	Characters []string
	WeakSet    map[string]struct{}
	Logger     *slog.Logger
}

type loadedMsg struct {
	character string
	strokes   model.CharacterStrokes
	err       error
}

type eventMsg session.Event

type advanceMsg struct {
	loadID uint64
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	opts   Options
	logger *slog.Logger
	keys   keyMap
	help   help.Model
	events chan session.Event

	sess        *session.Session
	state       model.SessionState
	current     string
	unavailable map[string]struct{}
	loading     bool
	err         error

	width  int
	height int

	drawing    bool
	drawLoadID uint64
	points     []model.Point
	lastStroke []model.Point
	rejected   []model.Point
	showHint   bool

	status      string
	statusStyle lipgloss.Style

	completed     int
	firstTryValid int
	firstTryTotal int
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	drawingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#40A9FF")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	canvasStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#595959"))
)

// NewModel constructs a practice TUI model.
func NewModel(opts Options) *Model {
	if opts.Generator == nil {
		opts.Generator = generator.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model{
		opts:        opts,
		logger:      logger,
		keys:        defaultKeyMap(),
		help:        help.New(),
		events:      make(chan session.Event, eventBuffer),
		unavailable: map[string]struct{}{},
		statusStyle: mutedStyle,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadNext(), m.waitForEvent())
}

// Err returns the error that stopped the UI, if any.
func (m *Model) Err() error {
	return m.err
}

// Close stops pending feedback timers.
func (m *Model) Close() {
	if m.sess != nil {
		m.sess.Close()
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case loadedMsg:
		return m, m.handleLoaded(msg)
	case eventMsg:
		cmd := m.handleEvent(session.Event(msg))
		return m, tea.Batch(cmd, m.waitForEvent())
	case advanceMsg:
		if m.sess != nil && msg.loadID == m.sess.LoadID() {
			return m, m.loadNext()
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Next):
		return m.loadNext()
	}
	if m.sess == nil {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Clear):
		m.resetCanvas()
		m.sess.Clear()
	case key.Matches(msg, m.keys.Reset):
		m.resetCanvas()
		m.showHint = false
		m.sess.Reset()
	case key.Matches(msg, m.keys.Hint):
		m.sess.MarkHintUsed()
		m.showHint = true
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.sess == nil {
		return
	}
	cv := newCanvas(m.width, m.height)
	x, y := msg.X-canvasOriginX, msg.Y-canvasOriginY
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !cv.contains(x, y) {
			return
		}
		m.drawing = true
		m.drawLoadID = m.sess.LoadID()
		m.points = []model.Point{cv.unit(x, y)}
	case tea.MouseActionMotion:
		if m.drawing {
			m.appendPoint(cv.unit(x, y))
		}
	case tea.MouseActionRelease:
		if !m.drawing {
			return
		}
		m.appendPoint(cv.unit(x, y))
		m.drawing = false
		points := m.points
		m.points = nil
		m.lastStroke = points
		if _, ok := m.sess.SubmitStrokeFor(m.drawLoadID, points); !ok {
			m.lastStroke = nil
			m.setStatus("Wait for the feedback to clear", mutedStyle)
		}
	}
}

func (m *Model) appendPoint(p model.Point) {
	if n := len(m.points); n > 0 && m.points[n-1] == p {
		return
	}
	m.points = append(m.points, p)
}

func (m *Model) resetCanvas() {
	m.drawing = false
	m.points = nil
	m.lastStroke = nil
	m.rejected = nil
	m.setStatus("", mutedStyle)
}

func (m *Model) handleLoaded(msg loadedMsg) tea.Cmd {
	m.loading = false
	if msg.err != nil {
		m.unavailable[msg.character] = struct{}{}
		if errors.Is(msg.err, strokedata.ErrUnavailable) {
			m.setStatus(fmt.Sprintf("No stroke data for %s", msg.character), incorrectStyle)
		} else {
			m.setStatus(fmt.Sprintf("Failed to load %s: %v", msg.character, msg.err), incorrectStyle)
		}
		m.logger.Warn("stroke data unavailable", "character", msg.character, "error", msg.err)
		return m.loadNext()
	}

	if m.sess == nil {
		sess, err := session.New(msg.strokes, session.Options{
			Validation:     m.opts.Validation,
			CorrectDelay:   m.opts.Config.CorrectDelay,
			IncorrectDelay: m.opts.Config.IncorrectDelay,
			Sink:           m.opts.Store,
			Observer:       m.observe,
			Logger:         m.logger,
		})
		if err != nil {
			m.err = fmt.Errorf("failed to start session: %w", err)
			return tea.Quit
		}
		m.sess = sess
	} else if err := m.sess.Load(msg.strokes); err != nil {
		m.unavailable[msg.character] = struct{}{}
		m.setStatus(fmt.Sprintf("No strokes for %s", msg.character), incorrectStyle)
		return m.loadNext()
	}
	m.current = msg.character
	m.state = m.sess.Snapshot()
	m.showHint = false
	m.resetCanvas()
	return nil
}

func (m *Model) observe(ev session.Event) {
	m.events <- ev
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.events)
	}
}

func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	if ev.Kind == session.EventValidated {
		m.recordAttempt(ev)
	}
	if ev.State.Character != m.current {
		return nil
	}
	// Timer expiry and input emit from different goroutines, so an older
	// snapshot can arrive after a newer one.
	stale := ev.State.Seq < m.state.Seq
	if stale && ev.Kind != session.EventCompleted {
		return nil
	}
	if !stale {
		m.state = ev.State
	}

	switch ev.Kind {
	case session.EventValidated:
		if ev.Result.IsValid {
			m.rejected = nil
			m.setStatus(fmt.Sprintf("Correct (%.2f)", ev.Result.Confidence), correctStyle)
		} else {
			m.rejected = m.lastStroke
			m.setStatus(fmt.Sprintf("%s (%.2f)", feedbackText(ev.Result.Feedback), ev.Result.Confidence), incorrectStyle)
		}
		m.lastStroke = nil
		m.showHint = false
	case session.EventCompleted:
		m.completed++
		status := "Complete!"
		if ev.Progress.HintsUsed {
			status = "Complete (with hints)"
		}
		m.setStatus(status, correctStyle)
		m.refreshWeakSet()
		loadID := m.sess.LoadID()
		return tea.Tick(advanceDelay, func(time.Time) tea.Msg {
			return advanceMsg{loadID: loadID}
		})
	case session.EventStateChanged:
		if ev.State.Phase == model.PhaseIdle {
			m.rejected = nil
		}
	}
	return nil
}

func (m *Model) recordAttempt(ev session.Event) {
	firstTry := ev.Attempt == 1
	if firstTry {
		m.firstTryTotal++
		if ev.Result.IsValid {
			m.firstTryValid++
		}
	}
	if m.opts.Store == nil {
		return
	}
	_, err := m.opts.Store.RecordAttempt(context.Background(), model.StrokeAttempt{
		Character:   ev.State.Character,
		StrokeIndex: ev.StrokeIndex,
		Feedback:    ev.Result.Feedback,
		Confidence:  ev.Result.Confidence,
		FirstTry:    firstTry,
	})
	if err != nil {
		m.logger.Warn("failed to record attempt", "character", ev.State.Character, "error", err)
	}
}

func (m *Model) refreshWeakSet() {
	if !m.opts.Config.FocusWeak || m.opts.Store == nil {
		return
	}
	aggs, err := m.opts.Store.GetWeakChars(context.Background(), m.opts.Config.WeakWindow, "")
	if err != nil {
		m.logger.Warn("failed to load weak chars", "error", err)
		return
	}
	m.opts.WeakSet = statsPkg.SelectWeakChars(aggs, m.opts.Config.WeakTop)
}

// loadNext picks the next character and resolves its strokes off the UI loop.
func (m *Model) loadNext() tea.Cmd {
	candidates := make([]string, 0, len(m.opts.Characters))
	for _, c := range m.opts.Characters {
		if _, skip := m.unavailable[c]; !skip {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		m.err = errors.New("no stroke data available for the selected characters")
		return tea.Quit
	}
	var next string
	if m.opts.Config.FocusWeak && len(m.opts.WeakSet) > 0 {
		next = m.opts.Generator.NextWeighted(candidates, m.current, m.opts.WeakSet, m.opts.Config.WeakFactor)
	} else {
		next = m.opts.Generator.Next(candidates, m.current)
	}
	m.loading = true
	source := m.opts.Strokes
	return func() tea.Msg {
		strokes, err := source.Strokes(context.Background(), next)
		return loadedMsg{character: next, strokes: strokes, err: err}
	}
}

func (m *Model) setStatus(text string, style lipgloss.Style) {
	m.status = text
	m.statusStyle = style
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return ""
	}
	cv := newCanvas(m.width, m.height)
	lines := []string{
		headerStyle.Render(m.fit(m.renderHeader())),
		m.statusStyle.Render(m.fit(m.status)),
		canvasStyle.Render(cv.render(m.layers(), m.hintMarker())),
		m.renderFooter() + "  " + m.help.View(m.keys),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	if m.sess == nil {
		return "Loading stroke data..."
	}
	total := m.state.TotalStrokes
	stroke := min(m.state.StrokeIndex+1, total)
	return fmt.Sprintf(" %s  %s · stroke %d/%d", m.current, chars.TypeOf(m.current), stroke, total)
}

func (m *Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return runewidth.Truncate(s, m.width, "…")
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Completed %d", m.completed)}
	if m.firstTryTotal > 0 {
		segments = append(segments, fmt.Sprintf("First try %.1f%%", float64(m.firstTryValid)/float64(m.firstTryTotal)*100))
	}
	if m.opts.Config.FocusWeak && len(m.opts.WeakSet) > 0 {
		segments = append(segments, fmt.Sprintf("Weak %d", len(m.opts.WeakSet)))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) layers() []layer {
	done := make([][]model.Point, len(m.state.ValidatedStrokes))
	for i, s := range m.state.ValidatedStrokes {
		done[i] = s
	}
	out := []layer{{strokes: done, style: doneStyle}}
	if len(m.rejected) > 0 {
		out = append(out, layer{strokes: [][]model.Point{m.rejected}, style: incorrectStyle})
	}
	if len(m.points) > 0 {
		out = append(out, layer{strokes: [][]model.Point{m.points}, style: drawingStyle})
	}
	return out
}

func (m *Model) hintMarker() *marker {
	if !m.showHint || m.sess == nil {
		return nil
	}
	ref, ok := m.sess.ExpectedStroke()
	if !ok {
		return nil
	}
	return &marker{at: ref.Start(), glyph: "+", style: hintStyle}
}

func feedbackText(kind model.FeedbackKind) string {
	switch kind {
	case model.FeedbackCorrect:
		return "Correct"
	case model.FeedbackWrongDirection:
		return "Wrong direction"
	case model.FeedbackWrongStart:
		return "Start point is off"
	case model.FeedbackWrongShape:
		return "Shape does not match"
	case model.FeedbackTooShort:
		return "Stroke too short"
	default:
		return string(kind)
	}
}
