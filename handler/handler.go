package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"speech-coach/constant"
	"speech-coach/dto"
	"speech-coach/service"
)

type ServiceDependencies struct {
	AnalysisService service.AnalysisService
}

// Submit handles POST /api/analyses. Submitting an already-tracked
// recording is safe and returns the existing analysis.
func Submit(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "recording_id is required"})
			return
		}

		resp, err := svc.Submit(c.Request.Context(), req.RecordingID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRecordingNotFound):
				c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "recording not found"})
			case errors.Is(err, service.ErrUpstreamSubmission):
				c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "failed to submit recording for transcription"})
			default:
				zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("submit failed")
				c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
			}
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// Poll handles GET /api/analyses/poll?recording_id=. Every outcome is a
// 200 with a status discriminator so clients poll one shape.
func Poll(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordingID, err := uuid.Parse(c.Query("recording_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "recording_id query param required"})
			return
		}

		result, err := svc.Advance(c.Request.Context(), recordingID)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("poll failed")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
			return
		}

		c.JSON(http.StatusOK, dto.PollResponse{
			Status: result.Status,
			Error:  result.Error,
			Data:   result.Analysis,
		})
	}
}

// RandomPrompt handles GET /api/prompts/random. Clients fetch a Table
// Topic here before they start recording.
func RandomPrompt() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.PromptResponse{Prompt: constant.RandomTableTopic()})
	}
}

// RecordingReadyHandler consumes recording-ready events from the queue and
// submits the recording for analysis.
func RecordingReadyHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var event dto.RecordingReadyMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal recording ready message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", event.RecordingID.String()).
		Msg("received recording ready message")

	resp, err := deps.AnalysisService.Submit(ctx, event.RecordingID)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", event.RecordingID.String()).
		Str("analysis_id", resp.AnalysisID.String()).
		Str("status", resp.Status).
		Msg("analysis submitted from queue")

	return nil
}
