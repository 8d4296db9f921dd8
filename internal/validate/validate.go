package validate

import (
	"math"

	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/pathend"
)

const (
	wrongStartCap     = 0.3
	wrongDirectionCap = 0.5
	reversedDegrees   = 135
	degradedEndScore  = 0.5
)

// Stroke classifies one freehand stroke against its reference.
// The stages run in order and the first failing stage decides the feedback.
func Stroke(user []model.Point, ref model.ReferenceStroke, cfg Config) model.ValidationResult {
	cfg = cfg.WithDefaults()

	if len(user) < cfg.MinPointCount {
		return model.ValidationResult{Confidence: 0, Feedback: model.FeedbackTooShort}
	}

	userStart := user[0]
	userEnd := user[len(user)-1]
	refStart := ref.Start()
	refEnd, _ := pathend.ResolveEnd(ref)

	startDist := distance(userStart, refStart)
	if startDist > cfg.StartTolerance {
		conf := math.Max(0, 1-startDist/cfg.StartTolerance) * wrongStartCap
		return model.ValidationResult{Confidence: conf, Feedback: model.FeedbackWrongStart}
	}

	// A zero-length vector has no direction to compare.
	if refStart == refEnd || userStart == userEnd {
		return model.ValidationResult{Confidence: 0, Feedback: model.FeedbackWrongShape}
	}

	diff := AngleDifference(Angle(userStart, userEnd), Angle(refStart, refEnd))
	if diff > cfg.DirectionToleranceDegrees {
		feedback := model.FeedbackWrongShape
		if diff > reversedDegrees {
			feedback = model.FeedbackWrongDirection
		}
		conf := math.Max(0, 1-diff/180) * wrongDirectionCap
		return model.ValidationResult{Confidence: conf, Feedback: feedback}
	}

	startScore := 1 - math.Min(startDist/cfg.StartTolerance, 1)

	endScore := degradedEndScore
	if endDist := distance(userEnd, refEnd); endDist <= cfg.EndTolerance {
		endScore = 1 - math.Min(endDist/cfg.EndTolerance, 1)
	}

	directionScore := 1 - math.Min(diff/cfg.DirectionToleranceDegrees, 1)
	lengthScore := math.Min(PathLength(user)*cfg.LengthScale, 1)

	w := cfg.Weights
	conf := round2(math.Min(startScore*w.Start+endScore*w.End+directionScore*w.Direction+lengthScore*w.Length, 1))

	if conf >= cfg.ValidThreshold {
		return model.ValidationResult{IsValid: true, Confidence: conf, Feedback: model.FeedbackCorrect}
	}
	return model.ValidationResult{Confidence: conf, Feedback: model.FeedbackWrongShape}
}

// BatchResult is the outcome of validating a whole character at once.
type BatchResult struct {
	Results           []model.ValidationResult `json:"results"`
	OverallSuccess    bool                     `json:"overallSuccess"`
	AverageConfidence float64                  `json:"averageConfidence"`
}

// AllStrokes pairs user strokes with reference strokes by position. The
// character only succeeds when every pair is valid and the counts match.
func AllStrokes(user [][]model.Point, refs []model.ReferenceStroke, cfg Config) BatchResult {
	count := min(len(user), len(refs))
	results := make([]model.ValidationResult, 0, count)
	allValid := true
	sum := 0.0
	for i := 0; i < count; i++ {
		res := Stroke(user[i], refs[i], cfg)
		results = append(results, res)
		if !res.IsValid {
			allValid = false
		}
		sum += res.Confidence
	}
	avg := 0.0
	if count > 0 {
		avg = round2(sum / float64(count))
	}
	return BatchResult{
		Results:           results,
		OverallSuccess:    allValid && len(user) == len(refs),
		AverageConfidence: avg,
	}
}

// Angle returns the direction from one point to another in degrees.
func Angle(from, to model.Point) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X) * (180 / math.Pi)
}

// AngleDifference returns the minimal rotation between two angles, 0-180.
func AngleDifference(a, b float64) float64 {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// PathLength returns the polyline arc-length of the points.
func PathLength(points []model.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += distance(points[i-1], points[i])
	}
	return total
}

func distance(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
