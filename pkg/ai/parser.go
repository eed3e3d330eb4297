package ai

import (
	"encoding/json"
	"strings"
)

const (
	fallbackScore    = 50
	fallbackBullet   = "We could not generate detailed feedback for this answer, but it has been recorded."
	fallbackQuestion = "Can you walk me through another situation where you demonstrated skills relevant to this role?"
)

// Scores are the three sub-scores of one answer, each clamped to [0,100].
type Scores struct {
	Content       int `json:"content"`
	Structure     int `json:"structure"`
	Communication int `json:"communication"`
}

// Reply is the decoded provider output. Fallback reports that some or all of
// the raw text could not be decoded and fixed values were substituted;
// malformed provider output is a routine condition, never an error.
type Reply struct {
	Bullets      []string
	Scores       Scores
	NextQuestion string
	Complete     bool
	Fallback     bool
}

// FallbackReply is the fixed record used when the provider output is
// unusable. The interview keeps going with a generic follow-up question.
func FallbackReply() Reply {
	return Reply{
		Bullets:      []string{fallbackBullet},
		Scores:       Scores{Content: fallbackScore, Structure: fallbackScore, Communication: fallbackScore},
		NextQuestion: fallbackQuestion,
		Fallback:     true,
	}
}

// Parse decodes raw provider text, accepting either a single JSON object or
// the three-section delimiter format. It never fails: undecodable input
// yields FallbackReply.
func Parse(raw string) Reply {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	if trimmed == "" {
		return FallbackReply()
	}

	if strings.HasPrefix(trimmed, "{") {
		if reply, ok := parseJSONReply(trimmed); ok {
			return reply
		}
	}

	if strings.Contains(trimmed, SectionDelimiter) {
		return parseSectionedReply(trimmed)
	}

	return FallbackReply()
}

func parseJSONReply(raw string) (Reply, bool) {
	var payload struct {
		FeedbackBullets []string       `json:"feedback_bullets"`
		Scores          map[string]int `json:"scores"`
		NextQuestion    *string        `json:"next_question"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Reply{}, false
	}

	reply := Reply{
		Scores: scoresFromMap(payload.Scores),
	}

	reply.Bullets = cleanBullets(payload.FeedbackBullets)
	if len(reply.Bullets) == 0 {
		reply.Bullets = []string{fallbackBullet}
		reply.Fallback = true
	}

	if payload.Scores == nil {
		reply.Fallback = true
	}

	if payload.NextQuestion == nil {
		reply.Complete = true
	} else {
		question := strings.TrimSpace(*payload.NextQuestion)
		if question == "" || question == CompleteMarker {
			reply.Complete = true
		} else {
			reply.NextQuestion = question
		}
	}

	return reply, true
}

func parseSectionedReply(raw string) Reply {
	parts := strings.SplitN(raw, SectionDelimiter, 3)
	if len(parts) < 3 {
		return FallbackReply()
	}

	reply := Reply{}

	reply.Bullets = cleanBullets(strings.Split(parts[0], "\n"))
	if len(reply.Bullets) == 0 {
		reply.Bullets = []string{fallbackBullet}
		reply.Fallback = true
	}

	var scoreMap map[string]int
	scoreText := stripCodeFence(strings.TrimSpace(parts[1]))
	if err := json.Unmarshal([]byte(scoreText), &scoreMap); err != nil {
		reply.Scores = Scores{Content: fallbackScore, Structure: fallbackScore, Communication: fallbackScore}
		reply.Fallback = true
	} else {
		reply.Scores = scoresFromMap(scoreMap)
	}

	question := strings.TrimSpace(parts[2])
	if question == "" || strings.HasPrefix(question, CompleteMarker) {
		reply.Complete = true
	} else {
		reply.NextQuestion = question
	}

	return reply
}

func scoresFromMap(values map[string]int) Scores {
	scores := Scores{Content: fallbackScore, Structure: fallbackScore, Communication: fallbackScore}
	if values == nil {
		return scores
	}

	if v, ok := values["content"]; ok {
		scores.Content = clampScore(v)
	}
	if v, ok := values["structure"]; ok {
		scores.Structure = clampScore(v)
	}
	if v, ok := values["communication"]; ok {
		scores.Communication = clampScore(v)
	}
	return scores
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func cleanBullets(lines []string) []string {
	bullets := make([]string, 0, len(lines))
	for _, line := range lines {
		bullet := strings.TrimSpace(line)
		bullet = strings.TrimLeft(bullet, "-*• \t")
		if bullet == "" {
			continue
		}
		bullets = append(bullets, bullet)
	}
	return bullets
}

func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		raw = raw[idx+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
