package report

var gradePoints = map[string]float64{
	"A+": 100, "A": 90, "B+": 85, "B": 80,
	"C+": 75, "C": 70, "D": 60, "F": 40,
}

// GradePoints converts a letter grade to points for averaging across
// sessions. Unknown grades count as 50.
func GradePoints(grade string) float64 {
	if p, ok := gradePoints[grade]; ok {
		return p
	}
	return 50
}

// GradeFromPoints converts averaged grade points back to a letter.
func GradeFromPoints(points float64) string {
	switch {
	case points >= 95:
		return "A+"
	case points >= 85:
		return "A"
	case points >= 80:
		return "B+"
	case points >= 75:
		return "B"
	case points >= 70:
		return "C+"
	case points >= 65:
		return "C"
	case points >= 55:
		return "D"
	default:
		return "F"
	}
}
