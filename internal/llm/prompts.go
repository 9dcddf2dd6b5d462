package llm

import "fmt"

// InternalSentinel prefixes every prompt memsys sends to an LLM, so the
// UserPromptSubmit hook can recognize and skip prompts that came from
// memsys itself.
const InternalSentinel = "[memsys-internal]"

// ExtractionPrompt generates the prompt used for LLM-augmented memory
// extraction from a session transcript, invoked only after pattern
// extraction has already run and only when the LLM breaker is closed.
func ExtractionPrompt(condensed string) string {
	return InternalSentinel + " " + fmt.Sprintf(`You are a memory extraction system. Analyze this session transcript and extract learnings worth remembering long-term.

TRANSCRIPT:
%s

EXTRACT:
- User preferences and explicit corrections
- Technical insights: patterns, solutions, approaches that worked
- Process learnings: workflows that succeeded or failed
- Decisions and their rationale

Rules:
- Only extract genuinely useful, persistent knowledge — skip trivial or session-specific details
- Each learning should be 1-2 sentences, self-contained without needing the transcript for context
- Return ONLY a JSON array, no other text
- If nothing is worth extracting, return []

Return a JSON array:
[{"content": "the learning, self-contained", "importance": 0.5-0.95, "tags": ["tag1"]}]`, condensed)
}

// ContradictionPrompt generates the prompt used to flag stored memories
// that conflict with a new one. candidates is a newline-separated list
// of "<id>: <content>" lines, already narrowed to the memories most
// likely to overlap with newContent.
func ContradictionPrompt(newContent, candidates string) string {
	return InternalSentinel + " " + fmt.Sprintf(`You are a contradiction detector for a memory system. A new memory was just stored; decide whether any of the candidate memories below conflict with it (state something that can't both be true).

NEW MEMORY:
%s

CANDIDATE MEMORIES:
%s

Rules:
- Only flag a candidate if it genuinely contradicts the new memory, not just if it's a related or unrelated topic
- confidence is your certainty the two conflict, 0 to 1
- Return ONLY a JSON array, no other text
- If nothing conflicts, return []

Return a JSON array:
[{"other_id": "the candidate's id", "confidence": 0.0-1.0, "evidence": "one sentence explaining the conflict"}]`, newContent, candidates)
}
