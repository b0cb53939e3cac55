package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"speech-coach/constant"
	"speech-coach/dto"
	"speech-coach/entities"
	"speech-coach/pkg/assemblyai"
	"speech-coach/repository"
)

var (
	ErrRecordingNotFound  = errors.New("recording not found")
	ErrUpstreamSubmission = errors.New("transcription submission rejected")
)

// invalidScoringMessage is the fixed error recorded when the scoring
// provider returns something that fails schema validation.
const invalidScoringMessage = "invalid scoring response"

const audioURLExpiry = time.Hour

// Poll statuses returned by Advance.
const (
	PollNotFound   = "not_found"
	PollProcessing = "processing"
	PollError      = "error"
	PollComplete   = "complete"
)

type PollResult struct {
	Status   string
	Error    string
	Analysis *entities.Analysis
}

type TranscriptionClient interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Get(ctx context.Context, id string) (*assemblyai.Transcript, error)
}

type ScoringClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AudioURLSigner mints a time-limited read URL for a stored audio object.
// *minio.Client satisfies it.
type AudioURLSigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type AnalysisService interface {
	Submit(ctx context.Context, recordingID uuid.UUID) (*dto.SubmitResponse, error)
	Advance(ctx context.Context, recordingID uuid.UUID) (*PollResult, error)
}

type analysisService struct {
	repo        repository.AnalysisRepository
	transcriber TranscriptionClient
	scorer      ScoringClient
	storage     AudioURLSigner
	bucket      string
}

func NewAnalysisService(
	repo repository.AnalysisRepository,
	transcriber TranscriptionClient,
	scorer ScoringClient,
	storage AudioURLSigner,
	bucket string,
) AnalysisService {
	return &analysisService{
		repo:        repo,
		transcriber: transcriber,
		scorer:      scorer,
		storage:     storage,
		bucket:      bucket,
	}
}

// Submit starts the analysis pipeline for a recording. Re-submitting a
// recording that is already tracked returns the existing analysis without
// touching the transcription provider.
func (s *analysisService) Submit(ctx context.Context, recordingID uuid.UUID) (*dto.SubmitResponse, error) {
	existing, err := s.repo.FindAnalysisByRecordingID(ctx, recordingID)
	if err == nil {
		zerolog.Ctx(ctx).Info().
			Str("recording_id", recordingID.String()).
			Str("analysis_id", existing.ID.String()).
			Msg("analysis already tracked")
		return &dto.SubmitResponse{AnalysisID: existing.ID, Status: existing.Status.String()}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	recording, err := s.repo.FindRecordingByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, err
	}

	audioURL, err := s.storage.PresignedGetObject(ctx, s.bucket, recording.ObjectPath, audioURLExpiry, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to presign audio object")
		return nil, err
	}

	transcriptID, err := s.transcriber.Submit(ctx, audioURL.String())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("recording_id", recordingID.String()).
			Msg("transcription submission failed")
		return nil, errors.Join(ErrUpstreamSubmission, err)
	}

	now := time.Now().UTC()
	analysis := &entities.Analysis{
		ID:           uuid.New(),
		RecordingID:  recordingID,
		TranscriptID: transcriptID,
		Status:       constant.AnalysisStatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAnalysis(ctx, analysis); err != nil {
		// Unique index on recording_id: a concurrent submit won the insert.
		if existing, findErr := s.repo.FindAnalysisByRecordingID(ctx, recordingID); findErr == nil {
			return &dto.SubmitResponse{AnalysisID: existing.ID, Status: existing.Status.String()}, nil
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", recordingID.String()).
		Str("analysis_id", analysis.ID.String()).
		Str("transcript_id", transcriptID).
		Msg("analysis created")

	return &dto.SubmitResponse{AnalysisID: analysis.ID, Status: constant.AnalysisStatusProcessing.String()}, nil
}

// Advance inspects the analysis for a recording and moves it one step if
// the upstream transcript is ready. Safe to call any number of times and
// concurrently; only one terminal write ever lands.
func (s *analysisService) Advance(ctx context.Context, recordingID uuid.UUID) (*PollResult, error) {
	analysis, err := s.repo.FindAnalysisByRecordingID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PollResult{Status: PollNotFound}, nil
		}
		return nil, err
	}

	if analysis.Status.Terminal() {
		return terminalResult(analysis), nil
	}

	transcript, err := s.transcriber.Get(ctx, analysis.TranscriptID)
	if err != nil {
		var httpErr *assemblyai.HTTPError
		message := fmt.Sprintf("transcription poll failed: %v", err)
		if errors.As(err, &httpErr) {
			message = fmt.Sprintf("AssemblyAI HTTP %d", httpErr.StatusCode)
		}
		zerolog.Ctx(ctx).Error().Err(err).
			Str("analysis_id", analysis.ID.String()).
			Msg("transcript fetch failed")
		return s.fail(ctx, analysis.ID, recordingID, message)
	}

	switch transcript.Status {
	case assemblyai.StatusError:
		return s.fail(ctx, analysis.ID, recordingID, transcript.Error)
	case assemblyai.StatusCompleted:
		return s.score(ctx, analysis, transcript)
	default:
		return &PollResult{Status: PollProcessing}, nil
	}
}

// score runs once, on the edge where the provider first reports a finished
// transcript: derives filler counts and pace, asks the scoring provider for
// feedback, and persists the terminal record in one conditional write.
func (s *analysisService) score(ctx context.Context, analysis *entities.Analysis, transcript *assemblyai.Transcript) (*PollResult, error) {
	var prompt string
	var duration int
	if recording, err := s.repo.FindRecordingByID(ctx, analysis.RecordingID); err == nil {
		prompt = recording.Prompt
		duration = recording.Duration
	}

	wpm := wordsPerMinute(len(transcript.Words), transcript.AudioDuration)
	fillers, fillerTotal := CountFillerWords(transcript.Text)

	scoringPrompt := BuildScoringPrompt(ScoringInput{
		Prompt:          prompt,
		Duration:        duration,
		WordsPerMinute:  wpm,
		FillerBreakdown: fillers,
		FillerTotal:     fillerTotal,
		Sentiment:       transcript.SentimentAnalysisResults,
		Transcript:      transcript.Text,
	})

	raw, err := s.scorer.Complete(ctx, scoringPrompt)
	if err != nil {
		// Transport failure: the analysis stays processing so a later
		// poll can retry the scoring call.
		zerolog.Ctx(ctx).Error().Err(err).
			Str("analysis_id", analysis.ID.String()).
			Msg("scoring request failed")
		return nil, fmt.Errorf("scoring request: %w", err)
	}

	feedback, err := ParseSpeechFeedback(raw)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("analysis_id", analysis.ID.String()).
			Msg("scoring response rejected")
		return s.fail(ctx, analysis.ID, analysis.RecordingID, invalidScoringMessage)
	}

	if fillers == nil {
		fillers = []dto.FillerCount{}
	}
	scoresJSON, _ := json.Marshal(feedback.Scores)
	explanationsJSON, _ := json.Marshal(feedback.ScoreExplanations)
	fillersJSON, _ := json.Marshal(fillers)
	pointsJSON, _ := json.Marshal(feedback.FeedbackPoints)

	analysis.Transcript = &transcript.Text
	analysis.OverallScore = &feedback.OverallScore
	analysis.OverallLabel = &feedback.OverallLabel
	analysis.Scores = scoresJSON
	analysis.ScoreExplanations = explanationsJSON
	analysis.FillerWordBreakdown = fillersJSON
	analysis.FillerWordTotal = &fillerTotal
	analysis.FeedbackPoints = pointsJSON
	analysis.Summary = &feedback.Summary

	won, err := s.repo.CompleteAnalysis(ctx, analysis)
	if err != nil {
		return nil, err
	}
	if !won {
		zerolog.Ctx(ctx).Info().
			Str("analysis_id", analysis.ID.String()).
			Msg("terminal write lost race, returning stored state")
	}

	stored, err := s.repo.FindAnalysisByRecordingID(ctx, analysis.RecordingID)
	if err != nil {
		return nil, err
	}
	return terminalResult(stored), nil
}

func (s *analysisService) fail(ctx context.Context, analysisID, recordingID uuid.UUID, message string) (*PollResult, error) {
	if _, err := s.repo.FailAnalysis(ctx, analysisID, message); err != nil {
		return nil, err
	}
	stored, err := s.repo.FindAnalysisByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	return terminalResult(stored), nil
}

func terminalResult(analysis *entities.Analysis) *PollResult {
	switch analysis.Status {
	case constant.AnalysisStatusComplete:
		return &PollResult{Status: PollComplete, Analysis: analysis}
	case constant.AnalysisStatusError:
		message := ""
		if analysis.ErrorMessage != nil {
			message = *analysis.ErrorMessage
		}
		return &PollResult{Status: PollError, Error: message}
	default:
		return &PollResult{Status: PollProcessing}
	}
}

// wordsPerMinute derives speaking pace from the provider's word timings.
// Zero duration or absent word data yields 0 rather than a division error.
func wordsPerMinute(wordCount int, audioDuration float64) int {
	if wordCount == 0 || audioDuration <= 0 {
		return 0
	}
	return int(math.Round(float64(wordCount) / (audioDuration / 60)))
}
