package academic

// Grade letters on the 0-10 point scale.
const (
	GradeO  = "O"
	GradeAP = "A+"
	GradeA  = "A"
	GradeBP = "B+"
	GradeB  = "B"
	GradeRA = "RA" // re-appearance; below pass mark
)

// GradeForScore maps an internal assessment score (0-100) to its letter grade
// and grade point. A nil score counts as zero.
func GradeForScore(score *int) (letter string, point int) {
	var s int
	if score != nil {
		s = *score
	}

	switch {
	case s >= 90:
		return GradeO, 10
	case s >= 80:
		return GradeAP, 9
	case s >= 70:
		return GradeA, 8
	case s >= 60:
		return GradeBP, 7
	case s >= 50:
		return GradeB, 6
	default:
		return GradeRA, 0
	}
}
