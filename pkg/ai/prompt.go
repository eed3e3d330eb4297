package ai

import (
	"fmt"
	"strings"
)

// SectionDelimiter separates the three sections of a streamed reply.
const SectionDelimiter = "|||"

// CompleteMarker is emitted by the provider in place of a follow-up question
// once the interview is over.
const CompleteMarker = "INTERVIEW_COMPLETE"

// BuildJSONPrompt instructs the provider to answer with a single JSON object
// carrying feedback bullets, sub-scores and the next question (null when the
// interview is finished).
func BuildJSONPrompt(answer, roleProfile string, history []TurnContext, maxTurns int) Prompt {
	system := fmt.Sprintf(`You are a world-class interview coach hiring for a '%s' position.
Analyze the candidate's LATEST answer and respond with a single JSON object.
Review the conversation history to avoid repeating feedback or questions.

Your JSON response MUST contain three keys:
1. "feedback_bullets": a list of 1-2 new, non-repetitive feedback strings.
2. "scores": an object with integer scores from 0 to 100 for "content", "structure", and "communication".
3. "next_question": a new, relevant, open-ended follow-up question. After %d answered questions the interview is over: return null instead.

CONVERSATION HISTORY:
%s`, roleProfile, maxTurns, renderHistory(history))

	return Prompt{
		System: system,
		User:   fmt.Sprintf("CANDIDATE'S LATEST ANSWER:\n'%s'", answer),
	}
}

// BuildStreamingPrompt instructs the provider to emit three sections in
// order, separated by the literal delimiter token, so the reply can be
// forwarded to the client as it is generated.
func BuildStreamingPrompt(answer, roleProfile string, history []TurnContext, maxTurns int) Prompt {
	system := fmt.Sprintf(`You are a senior hiring manager interviewing for the '%s' role.
For every answer you must:
1) First give 1-2 new, non-repetitive bullet points of feedback on the CANDIDATE'S LATEST answer.
2) On a new line write the exact token: %s
3) On a new line write a JSON object with integer scores from 0 to 100 for "content", "structure", "communication".
4) On a new line write the exact token: %s
5) On a new line ask a new, relevant, open-ended follow-up question. After %d answered questions the interview is over: write '%s' instead.

CONVERSATION HISTORY:
%s`, roleProfile, SectionDelimiter, SectionDelimiter, maxTurns, CompleteMarker, renderHistory(history))

	return Prompt{
		System: system,
		User:   fmt.Sprintf("CANDIDATE'S LATEST ANSWER:\n'%s'", answer),
	}
}

func renderHistory(history []TurnContext) string {
	if len(history) == 0 {
		return "(none yet)"
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", turn.Question, turn.Answer))
	}
	return strings.Join(lines, "\n")
}
