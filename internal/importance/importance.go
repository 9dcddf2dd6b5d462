// Package importance computes base importance scores from content
// signals, applies daily decay and reinforcement, and decides archival.
package importance

import (
	"math"
	"regexp"
	"strings"
)

// signalWeights mirrors the trigger taxonomy's weighted keyword table:
// explicit-learning, user-correction, cross-project-reference, and
// named CRITICAL markers all surface here with their relative weight.
var signalWeights = map[string]float64{
	"critical":     0.30,
	"urgent":       0.25,
	"breaking":     0.25,
	"production":   0.20,
	"pattern":      0.15,
	"mistake":      0.15,
	"failed":       0.15,
	"across":       0.10,
	"clients":      0.10,
	"success":      0.10,
	"learned":      0.15,
	"discovered":   0.15,
	"realized":     0.15,
	"actually":     0.10, // correction marker
	"that's wrong": 0.15, // correction marker
}

var triggerWords = map[string]struct{}{
	"critical": {}, "urgent": {}, "breaking": {}, "production": {}, "broken": {}, "failed": {},
	"pattern": {}, "across": {}, "multiple": {}, "clients": {}, "projects": {}, "universal": {},
	"mistake": {}, "error": {}, "failure": {}, "success": {}, "win": {}, "breakthrough": {},
	"learned": {}, "discovered": {}, "realized": {}, "insight": {}, "revelation": {},
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// BaseScore computes a clamped [0.3,1.0] base importance from content
// signals: keyword weights, length, emphasis markers, and sentence
// structure, per the classification taxonomy referenced in spec.md §4.B.
func BaseScore(content string) float64 {
	if content == "" {
		return 0.3
	}
	score := 0.5
	lower := strings.ToLower(content)

	for kw, w := range signalWeights {
		if strings.Contains(lower, kw) {
			score += w
		}
	}

	words := strings.Fields(content)
	switch {
	case len(words) > 100:
		score += 0.2
	case len(words) > 50:
		score += 0.1
	}

	if strings.Contains(content, "!") {
		score += 0.05
	}
	capsWords := 0
	for _, w := range words {
		if len(w) > 2 && w == strings.ToUpper(w) && strings.ToLower(w) != w {
			capsWords++
		}
	}
	if capsWords > 0 {
		score += math.Min(0.1, float64(capsWords)*0.05)
	}

	sentences := strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?")
	if sentences > 2 {
		score += 0.05
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.3 {
		score = 0.3
	}
	return score
}

// DetectTriggers returns the distinct trigger words found in content,
// lower-cased, in order of first appearance.
func DetectTriggers(content string) []string {
	if content == "" {
		return nil
	}
	lower := strings.ToLower(content)
	matches := wordRe.FindAllString(lower, -1)
	seen := map[string]bool{}
	var out []string
	for _, w := range matches {
		if _, ok := triggerWords[w]; !ok || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Decay applies `new = old * 0.99^daysSince`, per spec.md §4.B.
// Negative daysSince (clock skew) is treated as zero.
func Decay(old float64, daysSince int) float64 {
	if daysSince < 0 {
		daysSince = 0
	}
	decayed := old * math.Pow(0.99, float64(daysSince))
	if decayed < 0 {
		return 0
	}
	return decayed
}

// Reinforce applies `new = min(cap, old*multiplier)`, defaulting to the
// spec's literal 0.95/1.15 when cap/multiplier are zero.
func Reinforce(old, cap, multiplier float64) float64 {
	if cap <= 0 {
		cap = 0.95
	}
	if multiplier <= 0 {
		multiplier = 1.15
	}
	v := old * multiplier
	if v > cap {
		return cap
	}
	return v
}

// ShouldArchive reports whether a memory with the given importance and
// days-since-reinforcement crosses the archival threshold.
func ShouldArchive(imp float64, daysSince, staleThresholdDays int) bool {
	return imp < 0.2 && daysSince > staleThresholdDays
}

// Clamp restricts v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
