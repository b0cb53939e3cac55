package dto

import (
	"github.com/google/uuid"
	"speech-coach/entities"
)

type SubmitRequest struct {
	RecordingID uuid.UUID `json:"recording_id" binding:"required"`
}

type SubmitResponse struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	Status     string    `json:"status"`
}

// PollResponse is the wire shape of the poll endpoint. Status is one of
// not_found, processing, error, complete; Error and Data accompany the
// last two respectively.
type PollResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Data   *entities.Analysis `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// PromptResponse carries a Table Topic for the client to speak to.
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// FillerCount is one vocabulary entry's occurrence count in a transcript.
type FillerCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SpeechFeedback is the document the scoring provider must return. It is
// only trusted after schema validation.
type SpeechFeedback struct {
	OverallScore      float64            `json:"overall_score"`
	OverallLabel      string             `json:"overall_label"`
	Scores            map[string]float64 `json:"scores"`
	ScoreExplanations map[string]string  `json:"score_explanations"`
	FeedbackPoints    []string           `json:"feedback_points"`
	Summary           string             `json:"summary"`
}

// RecordingReadyMessage announces an uploaded recording on the queue;
// consuming it submits the recording for analysis.
type RecordingReadyMessage struct {
	RecordingID uuid.UUID `json:"recordingId"`
}
