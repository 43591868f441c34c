package engine

// Grade is a bufferbloat letter grade derived from how much the mean
// round-trip time rises while the link is saturated.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeThreshold assigns a grade to any latency increase strictly below
// MaxDeltaMs. Deltas past the last threshold fall through to GradeF.
type GradeThreshold struct {
	MaxDeltaMs float64
	Grade      Grade
}

func DefaultGradeThresholds() []GradeThreshold {
	return []GradeThreshold{
		{MaxDeltaMs: 5, Grade: GradeA},
		{MaxDeltaMs: 30, Grade: GradeB},
		{MaxDeltaMs: 60, Grade: GradeC},
		{MaxDeltaMs: 200, Grade: GradeD},
	}
}

func gradeFor(deltaMs float64, thresholds []GradeThreshold) Grade {
	for _, t := range thresholds {
		if deltaMs < t.MaxDeltaMs {
			return t.Grade
		}
	}
	return GradeF
}
