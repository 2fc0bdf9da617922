// Package size maps headcounts to company size brackets and picks the job
// titles worth targeting for each bracket.
package size

// Bracket is a company size class.
type Bracket string

const (
	Micro Bracket = "micro" // TPE, 0-10 employees
	Small Bracket = "small" // PME, 11-250 employees
	Mid   Bracket = "mid"   // ETI, 251-5000 employees
	Large Bracket = "large" // GE, more than 5000 employees
)

// Upper headcount bounds, inclusive.
const (
	MicroMax = 10
	SmallMax = 250
	MidMax   = 5000
)

// For maps a headcount to its bracket.
func For(headcount int) Bracket {
	switch {
	case headcount <= MicroMax:
		return Micro
	case headcount <= SmallMax:
		return Small
	case headcount <= MidMax:
		return Mid
	default:
		return Large
	}
}

// FromHeadcount maps an optional headcount to its bracket. Unknown
// headcounts default to Small, which targets top executives like the
// micro bracket does.
func FromHeadcount(headcount *int) Bracket {
	if headcount == nil {
		return Small
	}
	return For(*headcount)
}

// Label returns the French size class name.
func (b Bracket) Label() string {
	switch b {
	case Micro:
		return "TPE"
	case Small:
		return "PME"
	case Mid:
		return "ETI"
	case Large:
		return "GE"
	default:
		return ""
	}
}

// ParseLabel maps a French class name (TPE/PME/ETI/GE) to a Bracket.
func ParseLabel(label string) (Bracket, bool) {
	switch label {
	case "TPE":
		return Micro, true
	case "PME":
		return Small, true
	case "ETI":
		return Mid, true
	case "GE":
		return Large, true
	default:
		return "", false
	}
}

// Brackets lists every bracket from smallest to largest.
var Brackets = []Bracket{Micro, Small, Mid, Large}

var executiveTitles = []string{
	"CEO", "PDG", "Managing Director", "Directeur Général", "Gérant",
	"Founder", "Fondateur", "Owner", "Président", "General Manager",
}

var operationalTitles = []string{
	"Sales Director", "Directeur Commercial", "Purchasing Director", "Directeur Achats",
	"Business Development Director", "Directeur Développement",
	"Marketing Director", "Directeur Marketing",
}

// TargetTitles returns the ordered title keywords to pursue for b, most
// relevant first. Smaller companies are approached through their top
// executive, larger ones through the relevant department head.
func TargetTitles(b Bracket) []string {
	var src []string
	switch b {
	case Mid, Large:
		src = operationalTitles
	default:
		src = executiveTitles
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
