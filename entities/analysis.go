package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"speech-coach/constant"
)

// Analysis tracks one recording's trip through the transcription and
// scoring pipeline. At most one row exists per recording.
type Analysis struct {
	ID           uuid.UUID               `json:"id" gorm:"primaryKey"`
	RecordingID  uuid.UUID               `json:"recording_id" gorm:"uniqueIndex"`
	TranscriptID string                  `json:"transcript_id"`
	Status       constant.AnalysisStatus `json:"status"`

	Transcript          *string         `json:"transcript"`
	OverallScore        *float64        `json:"overall_score"`
	OverallLabel        *string         `json:"overall_label"`
	Scores              json.RawMessage `json:"scores" gorm:"type:jsonb"`
	ScoreExplanations   json.RawMessage `json:"score_explanations" gorm:"type:jsonb"`
	FillerWordBreakdown json.RawMessage `json:"filler_word_breakdown" gorm:"type:jsonb"`
	FillerWordTotal     *int            `json:"filler_word_total"`
	FeedbackPoints      json.RawMessage `json:"feedback_points" gorm:"type:jsonb"`
	Summary             *string         `json:"summary"`
	ErrorMessage        *string         `json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}
