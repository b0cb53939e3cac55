package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"speech-coach/constant"
	"speech-coach/entities"
)

type AnalysisRepository interface {
	FindRecordingByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	FindAnalysisByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Analysis, error)
	CreateAnalysis(ctx context.Context, analysis *entities.Analysis) error
	CompleteAnalysis(ctx context.Context, analysis *entities.Analysis) (bool, error)
	FailAnalysis(ctx context.Context, id uuid.UUID, message string) (bool, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) AnalysisRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) FindRecordingByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.db.WithContext(ctx).First(recording, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return recording, nil
}

func (r *repo) FindAnalysisByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Analysis, error) {
	analysis := &entities.Analysis{}
	err := r.db.WithContext(ctx).First(analysis, "recording_id = ?", recordingID).Error
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

func (r *repo) CreateAnalysis(ctx context.Context, analysis *entities.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

// CompleteAnalysis persists the scoring results in a single conditional
// update on status = processing, so of several concurrent advance calls
// only one terminal write lands.
func (r *repo) CompleteAnalysis(ctx context.Context, analysis *entities.Analysis) (bool, error) {
	updates := map[string]interface{}{
		"status":                constant.AnalysisStatusComplete,
		"transcript":            analysis.Transcript,
		"overall_score":         analysis.OverallScore,
		"overall_label":         analysis.OverallLabel,
		"scores":                analysis.Scores,
		"score_explanations":    analysis.ScoreExplanations,
		"filler_word_breakdown": analysis.FillerWordBreakdown,
		"filler_word_total":     analysis.FillerWordTotal,
		"feedback_points":       analysis.FeedbackPoints,
		"summary":               analysis.Summary,
		"updated_at":            time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).Model(&entities.Analysis{}).
		Where("id = ? AND status = ?", analysis.ID, constant.AnalysisStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FailAnalysis marks the analysis errored; same compare-and-swap on the
// processing status as CompleteAnalysis.
func (r *repo) FailAnalysis(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	updates := map[string]interface{}{
		"status":        constant.AnalysisStatusError,
		"error_message": message,
		"updated_at":    time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).Model(&entities.Analysis{}).
		Where("id = ? AND status = ?", id, constant.AnalysisStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
