package game

// Points awarded for a guess.
const (
	PointsMiss      = 0
	PointsCountOnly = 10
	PointsExactHand = 30
)

// Result is the outcome of scoring one guess.
type Result struct {
	Points           int  `json:"points"`
	IsCountCorrect   bool `json:"isCountCorrect"`
	IsFingersCorrect bool `json:"isFingersCorrect"`
}

// Evaluate scores a guess against a secret.
// Rules:
//   - wrong count: 0 points, the fingers are not looked at
//   - right count, same finger set: 30 points
//   - right count, different finger set: 10 points
func Evaluate(secretCount int, secretFingers FingerSet, guessedCount int, guessedFingers FingerSet) Result {
	if guessedCount != secretCount {
		return Result{Points: PointsMiss}
	}
	if guessedFingers.Equal(secretFingers) {
		return Result{Points: PointsExactHand, IsCountCorrect: true, IsFingersCorrect: true}
	}
	return Result{Points: PointsCountOnly, IsCountCorrect: true}
}

// ValidCount reports whether n is an allowed finger count.
func ValidCount(n int) bool {
	return n >= MinFingerCount && n <= MaxFingerCount
}
