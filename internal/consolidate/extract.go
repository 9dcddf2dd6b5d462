package consolidate

import (
	"strings"

	"github.com/localmem/memsys/internal/importance"
)

// Candidate is a single extracted learning, not yet deduplicated or
// persisted.
type Candidate struct {
	Content    string
	Importance float64
	Tags       []string
}

// ExtractPatterns runs the four deterministic pattern families over
// conversation text, ported from session_consolidator.py's
// _extract_memories_patterns.
func ExtractPatterns(conversation string) []Candidate {
	var out []Candidate
	if len(conversation) < 50 {
		return out
	}

	for _, re := range learningPatterns {
		for _, m := range re.FindAllStringSubmatch(conversation, -1) {
			content := strings.TrimSpace(m[1])
			if len(content) <= 20 {
				continue
			}
			imp := importance.BaseScore(content)
			if imp < 0.5 {
				continue
			}
			out = append(out, Candidate{Content: content, Importance: imp, Tags: []string{"learning"}})
		}
	}

	for _, re := range correctionPatterns {
		for _, m := range re.FindAllStringSubmatch(conversation, -1) {
			content := strings.TrimSpace(m[1])
			if len(content) <= 15 {
				continue
			}
			base := importance.BaseScore(content)
			boosted := base * 1.2
			if boosted > 0.95 {
				boosted = 0.95
			}
			out = append(out, Candidate{
				Content:    "Correction: " + content,
				Importance: boosted,
				Tags:       []string{"correction"},
			})
		}
	}

	for _, m := range problemSolutionPattern.FindAllStringSubmatch(conversation, -1) {
		problem := strings.TrimSpace(m[1])
		solution := strings.TrimSpace(m[2])
		if len(problem) <= 10 || len(solution) <= 10 {
			continue
		}
		content := "Problem: " + problem + " Solution: " + solution
		imp := importance.BaseScore(content)
		if imp < 0.6 {
			continue
		}
		out = append(out, Candidate{Content: content, Importance: imp, Tags: []string{"problem-solution"}})
	}

	insightCount := 0
	for _, m := range assistantInsightPattern.FindAllStringSubmatch(conversation, -1) {
		if insightCount >= 3 {
			break
		}
		insight := strings.TrimSpace(m[1])
		lower := strings.ToLower(insight)

		trivial := false
		for _, phrase := range trivialInsightPhrases {
			if strings.Contains(lower, phrase) {
				trivial = true
				break
			}
		}
		if trivial {
			continue
		}

		relevant := false
		for _, indicator := range insightIndicators {
			if strings.Contains(lower, indicator) {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}

		imp := importance.BaseScore(insight)
		if imp < 0.5 {
			continue
		}
		out = append(out, Candidate{Content: insight, Importance: imp, Tags: []string{"insight"}})
		insightCount++
	}

	return out
}
