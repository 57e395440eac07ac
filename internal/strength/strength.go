// Package strength scores password quality.
//
// Score is the deterministic heuristic shown next to every password field.
// Analyze adds a zxcvbn estimate for the strength command.
package strength

import (
	"math"
	"unicode/utf16"

	"github.com/nbutton23/zxcvbn-go"
)

// Label is the bucket a score falls into.
type Label string

const (
	NoPassword Label = "no password"
	Weak       Label = "weak"
	Fair       Label = "fair"
	Good       Label = "good"
	Strong     Label = "strong"
)

// Feedback returns a one-line description of the label.
func (l Label) Feedback() string {
	switch l {
	case Weak:
		return "Weak - easily crackable"
	case Fair:
		return "Fair - could be stronger"
	case Good:
		return "Good - decent protection"
	case Strong:
		return "Strong - excellent protection"
	default:
		return "No password"
	}
}

const (
	maxLengthPoints = 40
	classPoints     = 10
	maxUniquePoints = 20
)

// Score rates password from 0 to 100.
//
// Length gives 2 points per character up to 40. Each of lowercase,
// uppercase, digit and other characters present gives 10. The ratio of
// distinct characters to length gives up to 20, rounded. Characters are
// counted in UTF-16 code units, so a character outside the Basic
// Multilingual Plane counts as two.
func Score(password string) (int, Label) {
	units := utf16.Encode([]rune(password))
	n := len(units)
	if n == 0 {
		return 0, NoPassword
	}

	score := min(2*n, maxLengthPoints)

	var lower, upper, digit, other bool
	seen := make(map[uint16]struct{}, n)
	for _, u := range units {
		switch {
		case u >= 'a' && u <= 'z':
			lower = true
		case u >= 'A' && u <= 'Z':
			upper = true
		case u >= '0' && u <= '9':
			digit = true
		default:
			other = true
		}
		seen[u] = struct{}{}
	}
	for _, present := range []bool{lower, upper, digit, other} {
		if present {
			score += classPoints
		}
	}

	ratio := float64(len(seen)) / float64(n)
	score += int(math.Round(ratio * maxUniquePoints))

	return score, LabelFor(score)
}

// LabelFor maps a score to its label.
func LabelFor(score int) Label {
	switch {
	case score < 40:
		return Weak
	case score < 60:
		return Fair
	case score < 80:
		return Good
	default:
		return Strong
	}
}

// Report combines the heuristic score with a zxcvbn estimate.
type Report struct {
	Score     int
	Label     Label
	Entropy   float64
	Rating    int // zxcvbn score, 0 to 4
	CrackTime string
}

// Analyze scores password with both estimators. userInputs are words the
// password should not be built from, such as the website or username.
func Analyze(password string, userInputs ...string) Report {
	score, label := Score(password)
	r := Report{Score: score, Label: label}
	if password == "" {
		return r
	}

	m := zxcvbn.PasswordStrength(password, userInputs)
	r.Entropy = m.Entropy
	r.Rating = m.Score
	r.CrackTime = m.CrackTimeDisplay
	return r
}
