// Package session drives the stroke-by-stroke practice of one character.
//
// A Session exclusively owns its state. All mutation goes through
// SubmitStroke, Clear, Reset, MarkHintUsed and Load; each takes the session
// lock, so events from a UI loop and from feedback timers are serialized.
// Observers and the progress sink are invoked after the lock is released.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/validate"
)

const (
	DefaultCorrectDelay   = 200 * time.Millisecond
	DefaultIncorrectDelay = 500 * time.Millisecond
)

// ErrNoStrokes is returned when a character has no reference strokes.
var ErrNoStrokes = errors.New("no stroke data for character")

// ProgressSink receives one progress tuple per completed character.
type ProgressSink interface {
	UpdateProgress(ctx context.Context, p model.Progress) error
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventValidated follows every accepted stroke submission.
	EventValidated EventKind = iota
	// EventCompleted fires once when the last stroke is validated.
	EventCompleted
	// EventStateChanged follows clear, reset, hints, loads and feedback expiry.
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventValidated:
		return "validated"
	case EventCompleted:
		return "completed"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event is pushed to the Observer. Result, StrokeIndex and Attempt are set
// for EventValidated, Progress for EventCompleted.
type Event struct {
	Kind        EventKind
	StrokeIndex int
	// Attempt is 1 for the first try at a stroke.
	Attempt     int
	Result      model.ValidationResult
	State       model.SessionState
	Progress    model.Progress
}

// Observer receives session events. It must not block for long. Events
// from different goroutines may arrive out of order; State.Seq orders them.
type Observer func(Event)

// Options configures a Session. Zero values select defaults.
type Options struct {
	Validation     validate.Config
	CorrectDelay   time.Duration
	IncorrectDelay time.Duration
	Sink           ProgressSink
	Observer       Observer
	Scheduler      Scheduler
	Logger         *slog.Logger
}

type state struct {
	strokeIndex        int
	validated          []model.FreehandStroke
	phase              model.Phase
	hintsUsed          bool
	attemptsThisStroke int
}

// Session is the practice state machine for one character.
type Session struct {
	mu     sync.Mutex
	opts   Options
	logger *slog.Logger

	strokes model.CharacterStrokes
	loadID  uint64
	st      state
	last    *model.ValidationResult

	pending Timer
	timerID uint64
	seq     uint64
}

// New starts a session for the given character.
func New(strokes model.CharacterStrokes, opts Options) (*Session, error) {
	if len(strokes.Strokes) == 0 {
		return nil, ErrNoStrokes
	}
	if err := opts.Validation.Check(); err != nil {
		return nil, err
	}
	opts.Validation = opts.Validation.WithDefaults()
	if opts.CorrectDelay <= 0 {
		opts.CorrectDelay = DefaultCorrectDelay
	}
	if opts.IncorrectDelay <= 0 {
		opts.IncorrectDelay = DefaultIncorrectDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = clockScheduler{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{opts: opts, logger: logger}
	s.strokes = snapshotStrokes(strokes)
	s.loadID = 1
	s.st = state{phase: model.PhaseIdle}
	return s, nil
}

// Load switches the session to another character. Any pending feedback
// transition is discarded and the state starts fresh.
func (s *Session) Load(strokes model.CharacterStrokes) error {
	if len(strokes.Strokes) == 0 {
		return ErrNoStrokes
	}
	s.mu.Lock()
	s.cancelPendingLocked()
	s.strokes = snapshotStrokes(strokes)
	s.loadID++
	s.st = state{phase: model.PhaseIdle}
	s.last = nil
	snap := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug("character loaded", "character", snap.Character, "strokes", snap.TotalStrokes)
	s.emit(Event{Kind: EventStateChanged, State: snap})
	return nil
}

// LoadID identifies the currently loaded character. It changes on every Load.
func (s *Session) LoadID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadID
}

// SubmitStroke validates a completed freehand stroke against the expected
// reference stroke. accepted is false when the stroke was ignored because
// the session is not idle or has no expected stroke.
func (s *Session) SubmitStroke(points []model.Point) (model.ValidationResult, bool) {
	return s.submit(0, points)
}

// SubmitStrokeFor is SubmitStroke for a gesture that began while loadID
// was current. The stroke is ignored if another character was loaded since.
func (s *Session) SubmitStrokeFor(loadID uint64, points []model.Point) (model.ValidationResult, bool) {
	if loadID == 0 {
		return model.ValidationResult{}, false
	}
	return s.submit(loadID, points)
}

func (s *Session) submit(loadID uint64, points []model.Point) (model.ValidationResult, bool) {
	s.mu.Lock()
	if loadID != 0 && loadID != s.loadID {
		s.mu.Unlock()
		s.logger.Debug("stale stroke ignored", "load_id", loadID)
		return model.ValidationResult{}, false
	}
	if s.st.phase != model.PhaseIdle {
		phase := s.st.phase
		s.mu.Unlock()
		s.logger.Debug("stroke ignored", "phase", phase)
		return model.ValidationResult{}, false
	}
	index := s.st.strokeIndex
	if index >= len(s.strokes.Strokes) {
		s.mu.Unlock()
		return model.ValidationResult{}, false
	}
	character := s.strokes.Character
	total := len(s.strokes.Strokes)
	ref := s.strokes.Strokes[index]
	attempt := s.st.attemptsThisStroke + 1

	s.st.phase = model.PhaseValidating
	stroke := append(model.FreehandStroke(nil), points...)
	res := validate.Stroke(stroke, ref, s.opts.Validation)
	s.last = &res

	completed := false
	var progress model.Progress
	if res.IsValid {
		s.st.validated = append(s.st.validated, stroke)
		s.st.strokeIndex++
		s.st.attemptsThisStroke = 0
		if s.st.strokeIndex >= total {
			s.st.phase = model.PhaseComplete
			completed = true
			progress = model.Progress{Character: character, Success: true, HintsUsed: s.st.hintsUsed}
		} else {
			s.st.phase = model.PhaseFeedbackCorrect
			s.scheduleIdleLocked(s.opts.CorrectDelay)
		}
	} else {
		s.st.attemptsThisStroke++
		s.st.phase = model.PhaseFeedbackIncorrect
		s.scheduleIdleLocked(s.opts.IncorrectDelay)
	}
	snap := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug("stroke validated",
		"character", character,
		"stroke", index,
		"feedback", res.Feedback,
		"confidence", res.Confidence,
	)
	s.emit(Event{Kind: EventValidated, StrokeIndex: index, Attempt: attempt, Result: res, State: snap})
	if completed {
		s.emit(Event{Kind: EventCompleted, StrokeIndex: index, Attempt: attempt, Result: res, State: snap, Progress: progress})
		if s.opts.Sink != nil {
			if err := s.opts.Sink.UpdateProgress(context.Background(), progress); err != nil {
				s.logger.Warn("failed to record progress", "character", character, "error", err)
			}
		}
	}
	return res, true
}

// Clear empties the canvas and restarts the character, keeping hint usage.
func (s *Session) Clear() {
	s.restart(false)
}

// Reset restarts the character and forgets hint usage.
func (s *Session) Reset() {
	s.restart(true)
}

func (s *Session) restart(forgetHints bool) {
	s.mu.Lock()
	s.cancelPendingLocked()
	hints := s.st.hintsUsed
	if forgetHints {
		hints = false
	}
	s.st = state{phase: model.PhaseIdle, hintsUsed: hints}
	s.last = nil
	snap := s.changedLocked()
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: snap})
}

// MarkHintUsed records that a hint was shown for this character.
func (s *Session) MarkHintUsed() {
	s.mu.Lock()
	s.st.hintsUsed = true
	snap := s.changedLocked()
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: snap})
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ExpectedStroke returns the reference stroke to be drawn next.
func (s *Session) ExpectedStroke() (model.ReferenceStroke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.strokeIndex >= len(s.strokes.Strokes) {
		return model.ReferenceStroke{}, false
	}
	return s.strokes.Strokes[s.st.strokeIndex], true
}

// LastResult returns the most recent validation result since the last
// clear, reset or load.
func (s *Session) LastResult() (model.ValidationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.ValidationResult{}, false
	}
	return *s.last, true
}

// Strokes returns the loaded character's reference strokes.
func (s *Session) Strokes() model.CharacterStrokes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotStrokes(s.strokes)
}

// Close discards any pending feedback transition.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelPendingLocked()
	s.mu.Unlock()
}

func (s *Session) scheduleIdleLocked(d time.Duration) {
	s.cancelPendingLocked()
	id := s.timerID
	s.pending = s.opts.Scheduler.AfterFunc(d, func() {
		s.expire(id)
	})
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.timerID++
}

func (s *Session) expire(id uint64) {
	s.mu.Lock()
	if id != s.timerID || s.pending == nil {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	if s.st.phase != model.PhaseFeedbackCorrect && s.st.phase != model.PhaseFeedbackIncorrect {
		s.mu.Unlock()
		return
	}
	s.st.phase = model.PhaseIdle
	snap := s.changedLocked()
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: snap})
}

// changedLocked stamps a new state version and returns its snapshot.
func (s *Session) changedLocked() model.SessionState {
	s.seq++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.SessionState {
	validated := make([]model.FreehandStroke, len(s.st.validated))
	for i, stroke := range s.st.validated {
		validated[i] = append(model.FreehandStroke(nil), stroke...)
	}
	return model.SessionState{
		Character:            s.strokes.Character,
		TotalStrokes:         len(s.strokes.Strokes),
		StrokeIndex:          s.st.strokeIndex,
		ValidatedStrokes:     validated,
		Phase:                s.st.phase,
		HintsUsedThisSession: s.st.hintsUsed,
		AttemptsThisStroke:   s.st.attemptsThisStroke,
		Seq:                  s.seq,
	}
}

func (s *Session) emit(ev Event) {
	if s.opts.Observer != nil {
		s.opts.Observer(ev)
	}
}

func snapshotStrokes(in model.CharacterStrokes) model.CharacterStrokes {
	out := in
	out.Strokes = append([]model.ReferenceStroke(nil), in.Strokes...)
	out.StrokeCount = len(out.Strokes)
	return out
}
