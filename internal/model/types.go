// Package model defines shared data structures.
package model

import "time"

// Point is a position in the normalized [0,1]x[0,1] canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ReferenceStroke is one pre-authored stroke of a character.
// StartX/StartY are already normalized; Path is in the corpus coordinate space.
type ReferenceStroke struct {
	Path   string  `json:"path"`
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
}

// Start returns the normalized start point.
func (s ReferenceStroke) Start() Point {
	return Point{X: s.StartX, Y: s.StartY}
}

// FreehandStroke is the ordered samples of one continuous gesture.
type FreehandStroke []Point

// CharacterStrokes is the ordered reference strokes of one character.
type CharacterStrokes struct {
	Character   string            `json:"character"`
	Type        string            `json:"type,omitempty"`
	StrokeCount int               `json:"strokeCount"`
	Strokes     []ReferenceStroke `json:"strokes"`
}

// FeedbackKind classifies a validated stroke.
type FeedbackKind string

const (
	FeedbackCorrect        FeedbackKind = "correct"
	FeedbackWrongDirection FeedbackKind = "wrong_direction"
	FeedbackWrongStart     FeedbackKind = "wrong_start"
	FeedbackWrongShape     FeedbackKind = "wrong_shape"
	FeedbackTooShort       FeedbackKind = "too_short"
)

// ValidationResult is the outcome of comparing one freehand stroke to its reference.
type ValidationResult struct {
	IsValid    bool         `json:"isValid"`
	Confidence float64      `json:"confidence"`
	Feedback   FeedbackKind `json:"feedback"`
}

// Phase is the practice session phase.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseValidating        Phase = "validating"
	PhaseFeedbackCorrect   Phase = "feedback_correct"
	PhaseFeedbackIncorrect Phase = "feedback_incorrect"
	PhaseComplete          Phase = "complete"
)

// SessionState is a snapshot of one character practice attempt.
type SessionState struct {
	Character            string
	TotalStrokes         int
	StrokeIndex          int
	ValidatedStrokes     []FreehandStroke
	Phase                Phase
	HintsUsedThisSession bool
	AttemptsThisStroke   int
	// Seq grows with every state change. A snapshot with a lower Seq is older.
	Seq                  uint64
}

// Progress is emitted once when a character is completed.
type Progress struct {
	Character string
	Success   bool
	HintsUsed bool
}

// Config defines practice settings.
type Config struct {
	Chars          string
	WordsFile      string
	FocusWeak      bool
	WeakTop        int
	WeakFactor     float64
	WeakWindow     int
	CorrectDelay   time.Duration
	IncorrectDelay time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Type   string
	Since  *time.Time
	Last   int
	Window int
	Chars  string
}

// CharacterProgress aggregates completion events for one character.
type CharacterProgress struct {
	Character     string
	Type          string
	Attempts      int
	Successes     int
	HintsUsed     int
	LastPracticed *time.Time
}

// StrokeAttempt records one stroke validation.
type StrokeAttempt struct {
	ID          int64
	Character   string
	StrokeIndex int
	Feedback    FeedbackKind
	Confidence  float64
	FirstTry    bool
	AttemptedAt time.Time
}

// CharAggregate aggregates stroke attempts for a character.
type CharAggregate struct {
	Char           string
	Valid          int
	Invalid        int
	FirstTryValid  int
	FirstTryTotal  int
	ConfidenceSum  float64
	ConfidenceSeen int
}

// PracticeWord is a saved word whose characters are practiced.
type PracticeWord struct {
	ID         string
	Word       string
	Characters []string
	Reading    string
	Meaning    string
	AddedAt    time.Time
	Source     string
}
