package consolidate

import "regexp"

// Pattern families for deterministic learning extraction, ported
// line-for-line from session_consolidator.py's _extract_memories_patterns.
var (
	learningPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:learned|discovered|realized|found out|noticed) that ([^.!?]+[.!?])`),
		regexp.MustCompile(`(?i)(?:key insight|important to note|worth remembering):? ([^.!?]+[.!?])`),
		regexp.MustCompile(`(?i)(?:pattern|trend) (?:i noticed|observed|saw):? ([^.!?]+[.!?])`),
	}

	correctionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)user:.*?(?:actually|correction|no,|wrong|mistake|should be|meant to say) ([^.!?]+[.!?])`),
		regexp.MustCompile(`(?is)user:.*?(?:better way|instead try|prefer) ([^.!?]+[.!?])`),
	}

	problemSolutionPattern = regexp.MustCompile(`(?is)(?:problem|issue|challenge):.*?([^.!?]+[.!?]).*?(?:solution|fix|approach):.*?([^.!?]+[.!?])`)

	assistantInsightPattern = regexp.MustCompile(`(?s)assistant:.*?([A-Z][^.!?]{30,}[.!?])`)
)

var trivialInsightPhrases = []string{
	"let me", "i'll", "here's", "sure", "okay", "got it",
}

var insightIndicators = []string{
	"better to", "key is", "important", "pattern", "approach",
	"when you", "if you", "works well", "effective", "i've found",
	"rather than", "instead of", "acknowledge", "reframe", "ask",
	"often hide", "surface", "recommend",
}
