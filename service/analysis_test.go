package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"speech-coach/constant"
	"speech-coach/entities"
	"speech-coach/pkg/assemblyai"
)

type fakeRepo struct {
	recordings map[uuid.UUID]*entities.Recording
	analyses   map[uuid.UUID]*entities.Analysis // keyed by recording id
	createErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recordings: map[uuid.UUID]*entities.Recording{},
		analyses:   map[uuid.UUID]*entities.Analysis{},
	}
}

func (f *fakeRepo) FindRecordingByID(_ context.Context, id uuid.UUID) (*entities.Recording, error) {
	r, ok := f.recordings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRepo) FindAnalysisByRecordingID(_ context.Context, recordingID uuid.UUID) (*entities.Analysis, error) {
	a, ok := f.analyses[recordingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeRepo) CreateAnalysis(_ context.Context, analysis *entities.Analysis) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.analyses[analysis.RecordingID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	copied := *analysis
	f.analyses[analysis.RecordingID] = &copied
	return nil
}

func (f *fakeRepo) CompleteAnalysis(_ context.Context, analysis *entities.Analysis) (bool, error) {
	stored := f.findByID(analysis.ID)
	if stored == nil || stored.Status != constant.AnalysisStatusProcessing {
		return false, nil
	}
	stored.Status = constant.AnalysisStatusComplete
	stored.Transcript = analysis.Transcript
	stored.OverallScore = analysis.OverallScore
	stored.OverallLabel = analysis.OverallLabel
	stored.Scores = analysis.Scores
	stored.ScoreExplanations = analysis.ScoreExplanations
	stored.FillerWordBreakdown = analysis.FillerWordBreakdown
	stored.FillerWordTotal = analysis.FillerWordTotal
	stored.FeedbackPoints = analysis.FeedbackPoints
	stored.Summary = analysis.Summary
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeRepo) FailAnalysis(_ context.Context, id uuid.UUID, message string) (bool, error) {
	stored := f.findByID(id)
	if stored == nil || stored.Status != constant.AnalysisStatusProcessing {
		return false, nil
	}
	stored.Status = constant.AnalysisStatusError
	stored.ErrorMessage = &message
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeRepo) findByID(id uuid.UUID) *entities.Analysis {
	for _, a := range f.analyses {
		if a.ID == id {
			return a
		}
	}
	return nil
}

type fakeTranscriber struct {
	submitID    string
	submitErr   error
	submitCalls int
	transcript  *assemblyai.Transcript
	getErr      error
}

func (f *fakeTranscriber) Submit(context.Context, string) (string, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeTranscriber) Get(context.Context, string) (*assemblyai.Transcript, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.transcript, nil
}

type fakeScorer struct {
	response string
	err      error
	calls    int
}

func (f *fakeScorer) Complete(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSigner struct{}

func (fakeSigner) PresignedGetObject(_ context.Context, bucket, object string, _ time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://storage.local/" + bucket + "/" + object)
}

func newTestService(repo *fakeRepo, transcriber *fakeTranscriber, scorer *fakeScorer) AnalysisService {
	return NewAnalysisService(repo, transcriber, scorer, fakeSigner{}, "recordings")
}

func seedRecording(repo *fakeRepo) uuid.UUID {
	id := uuid.New()
	repo.recordings[id] = &entities.Recording{
		ID:         id,
		Prompt:     "Describe a challenge you overcame",
		ObjectPath: "audio/" + id.String() + ".webm",
		Duration:   42,
	}
	return id
}

func completedTranscript(text string) *assemblyai.Transcript {
	words := make([]assemblyai.Word, 7)
	return &assemblyai.Transcript{
		ID:                       "tr-1",
		Status:                   assemblyai.StatusCompleted,
		Text:                     text,
		Words:                    words,
		AudioDuration:            42,
		SentimentAnalysisResults: json.RawMessage(`[]`),
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{submitID: "tr-1"}
	svc := newTestService(repo, transcriber, &fakeScorer{})

	first, err := svc.Submit(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Status != "processing" {
		t.Fatalf("status = %s, want processing", first.Status)
	}

	second, err := svc.Submit(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.AnalysisID != first.AnalysisID {
		t.Fatalf("second submit returned %s, want %s", second.AnalysisID, first.AnalysisID)
	}
	if transcriber.submitCalls != 1 {
		t.Fatalf("provider submit called %d times, want 1", transcriber.submitCalls)
	}
	if len(repo.analyses) != 1 {
		t.Fatalf("analyses stored = %d, want 1", len(repo.analyses))
	}
}

func TestSubmitRecordingNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeTranscriber{}, &fakeScorer{})

	_, err := svc.Submit(context.Background(), uuid.New())
	if !errors.Is(err, ErrRecordingNotFound) {
		t.Fatalf("err = %v, want ErrRecordingNotFound", err)
	}
}

func TestSubmitUpstreamRejection(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{submitErr: errors.New("invalid audio_url")}
	svc := newTestService(repo, transcriber, &fakeScorer{})

	_, err := svc.Submit(context.Background(), recordingID)
	if !errors.Is(err, ErrUpstreamSubmission) {
		t.Fatalf("err = %v, want ErrUpstreamSubmission", err)
	}
	// No row created, so a later resubmission can succeed.
	if len(repo.analyses) != 0 {
		t.Fatalf("analyses stored = %d, want 0", len(repo.analyses))
	}
}

func TestAdvanceNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeTranscriber{}, &fakeScorer{})

	result, err := svc.Advance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Status != PollNotFound {
		t.Fatalf("status = %s, want not_found", result.Status)
	}
}

func TestAdvanceStillProcessing(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: &assemblyai.Transcript{ID: "tr-1", Status: assemblyai.StatusProcessing},
	}
	svc := newTestService(repo, transcriber, &fakeScorer{})

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Status != PollProcessing {
		t.Fatalf("status = %s, want processing", result.Status)
	}
	if repo.analyses[recordingID].Status != constant.AnalysisStatusProcessing {
		t.Fatal("stored analysis should remain processing")
	}
}

func TestAdvanceTransportFailure(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID: "tr-1",
		getErr:   &assemblyai.HTTPError{StatusCode: 503, Body: "unavailable"},
	}
	svc := newTestService(repo, transcriber, &fakeScorer{})

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Status != PollError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if result.Error != "AssemblyAI HTTP 503" {
		t.Fatalf("error = %q, want HTTP status message", result.Error)
	}
	if repo.analyses[recordingID].Status != constant.AnalysisStatusError {
		t.Fatal("stored analysis should be error")
	}
}

func TestAdvanceProviderError(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: &assemblyai.Transcript{ID: "tr-1", Status: assemblyai.StatusError, Error: "audio too short"},
	}
	svc := newTestService(repo, transcriber, &fakeScorer{})

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Status != PollError || result.Error != "audio too short" {
		t.Fatalf("result = %+v, want provider error text", result)
	}
}

func TestAdvanceInvalidScoringResponse(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: completedTranscript("I think, um, this was really tough"),
	}
	scorer := &fakeScorer{response: "Sorry, I can't help with that."}
	svc := newTestService(repo, transcriber, scorer)

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Status != PollError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if result.Error != "invalid scoring response" {
		t.Fatalf("error = %q, want fixed message", result.Error)
	}

	// Derived data computed before the failed parse must not leak into
	// the stored row.
	stored := repo.analyses[recordingID]
	if stored.Transcript != nil || stored.FillerWordBreakdown != nil || stored.OverallScore != nil {
		t.Fatal("partial results persisted on scoring failure")
	}
}

func TestAdvanceScoringTransportFailureKeepsProcessing(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: completedTranscript("fine speech"),
	}
	scorer := &fakeScorer{err: errors.New("connection reset")}
	svc := newTestService(repo, transcriber, scorer)

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Advance(context.Background(), recordingID); err == nil {
		t.Fatal("expected error from scoring transport failure")
	}
	// Still processing: the next poll retries scoring.
	if repo.analyses[recordingID].Status != constant.AnalysisStatusProcessing {
		t.Fatal("analysis should stay processing after scoring transport failure")
	}
}

func TestAdvanceEndToEnd(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: &assemblyai.Transcript{ID: "tr-1", Status: assemblyai.StatusProcessing},
	}
	scorer := &fakeScorer{response: validFeedbackJSON}
	svc := newTestService(repo, transcriber, scorer)

	submitted, err := svc.Submit(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != "processing" {
		t.Fatalf("submit status = %s, want processing", submitted.Status)
	}

	result, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance while processing: %v", err)
	}
	if result.Status != PollProcessing {
		t.Fatalf("status = %s, want processing", result.Status)
	}

	transcriber.transcript = completedTranscript("I think, um, this was really tough")

	result, err = svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("advance after completion: %v", err)
	}
	if result.Status != PollComplete {
		t.Fatalf("status = %s, want complete", result.Status)
	}

	analysis := result.Analysis
	if analysis == nil {
		t.Fatal("complete result carries no analysis")
	}
	if analysis.Transcript == nil || *analysis.Transcript != "I think, um, this was really tough" {
		t.Fatalf("transcript = %v", analysis.Transcript)
	}
	if analysis.OverallScore == nil || *analysis.OverallScore != 7.5 {
		t.Fatalf("overall_score = %v, want 7.5", analysis.OverallScore)
	}
	if analysis.FillerWordTotal == nil || *analysis.FillerWordTotal != 1 {
		t.Fatalf("filler_word_total = %v, want 1", analysis.FillerWordTotal)
	}

	var breakdown []map[string]any
	if err := json.Unmarshal(analysis.FillerWordBreakdown, &breakdown); err != nil {
		t.Fatalf("unmarshal breakdown: %v", err)
	}
	if len(breakdown) != 1 || breakdown[0]["word"] != "um" || breakdown[0]["count"] != float64(1) {
		t.Fatalf("breakdown = %+v, want [um x1]", breakdown)
	}
	if scorer.calls != 1 {
		t.Fatalf("scorer called %d times, want 1", scorer.calls)
	}
}

func TestAdvanceTerminalIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	recordingID := seedRecording(repo)
	transcriber := &fakeTranscriber{
		submitID:   "tr-1",
		transcript: completedTranscript("a clean answer"),
	}
	scorer := &fakeScorer{response: validFeedbackJSON}
	svc := newTestService(repo, transcriber, scorer)

	if _, err := svc.Submit(context.Background(), recordingID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	first, err := svc.Advance(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if first.Status != PollComplete {
		t.Fatalf("status = %s, want complete", first.Status)
	}

	// Subsequent polls must not touch the providers or change the row.
	transcriber.getErr = errors.New("provider must not be called again")
	for i := 0; i < 3; i++ {
		again, err := svc.Advance(context.Background(), recordingID)
		if err != nil {
			t.Fatalf("repeat advance %d: %v", i, err)
		}
		if again.Status != PollComplete {
			t.Fatalf("repeat advance %d status = %s, want complete", i, again.Status)
		}
		if fmt.Sprint(again.Analysis.UpdatedAt) != fmt.Sprint(first.Analysis.UpdatedAt) {
			t.Fatal("terminal analysis mutated by repeated poll")
		}
	}
	if scorer.calls != 1 {
		t.Fatalf("scorer called %d times, want 1", scorer.calls)
	}
}

func TestWordsPerMinute(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		duration float64
		want     int
	}{
		{"zero duration", 120, 0, 0},
		{"no word data", 0, 60, 0},
		{"one minute", 130, 60, 130},
		{"rounding", 7, 42, 10},
		{"negative duration", 10, -5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wordsPerMinute(tc.words, tc.duration); got != tc.want {
				t.Fatalf("wordsPerMinute(%d, %v) = %d, want %d", tc.words, tc.duration, got, tc.want)
			}
		})
	}
}
