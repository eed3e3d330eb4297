package dto

import "github.com/google/uuid"

// StartSessionRequest starts a new interview session. An empty role profile
// falls back to the configured default role.
type StartSessionRequest struct {
	RoleProfile string `json:"role_profile"`
}

// StartSessionResponse carries the new session identifier and opening question.
type StartSessionResponse struct {
	SessionID     uuid.UUID `json:"session_id"`
	FirstQuestion string    `json:"first_question"`
}

// AnswerRequest submits the candidate's answer to the open question.
type AnswerRequest struct {
	SessionID  uuid.UUID `json:"session_id" validate:"required"`
	AnswerText string    `json:"answer_text" validate:"required"`
}

// ScoreCard holds the three sub-scores, each an integer in [0,100].
type ScoreCard struct {
	Content       int `json:"content"`
	Structure     int `json:"structure"`
	Communication int `json:"communication"`
}

// Feedback bundles the coach's bullets with the per-dimension scores.
type Feedback struct {
	Bullets []string  `json:"bullets"`
	Scores  ScoreCard `json:"scores"`
}

// AnswerResponse is the non-streaming answer payload. NextQuestion is null
// once the interview has finished.
type AnswerResponse struct {
	Feedback     Feedback `json:"feedback"`
	NextQuestion *string  `json:"next_question"`
}

// ReportMetrics are the per-dimension averages and their overall mean,
// rounded to one decimal place.
type ReportMetrics struct {
	AvgContent       float64 `json:"avg_content"`
	AvgStructure     float64 `json:"avg_structure"`
	AvgCommunication float64 `json:"avg_communication"`
	OverallAvg       float64 `json:"overall_avg"`
}

// FinalReportResponse summarises a session's scored turns.
type FinalReportResponse struct {
	SessionID    uuid.UUID     `json:"session_id"`
	RoleProfile  string        `json:"role_profile"`
	Metrics      ReportMetrics `json:"metrics"`
	FinalSummary string        `json:"final_summary"`
}
