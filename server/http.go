package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"speech-coach/config"
	"speech-coach/constant"
	analysisHandler "speech-coach/handler"
	"speech-coach/pkg/anthropic"
	"speech-coach/pkg/assemblyai"
	"speech-coach/pkg/rabbitmq"
	"speech-coach/repository"
	"speech-coach/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo := repository.NewRepo(cfg.DB)
	transcriber := assemblyai.NewClient(cfg.Transcription)
	scorer := anthropic.NewClient(cfg.Scoring)
	analysisService := service.NewAnalysisService(repo, transcriber, scorer, cfg.Storage, cfg.MinIOBucket)

	serviceDeps := analysisHandler.ServiceDependencies{
		AnalysisService: analysisService,
	}

	// Recording uploads announce themselves on the queue; consuming them
	// kicks off analysis without waiting for a client submit.
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	} else {
		consumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, analysisHandler.RecordingReadyHandler)
		go func() {
			if err := consumer.Consume(ctx, serviceDeps); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("recording ready consumer error")
			}
		}()
	}

	r := gin.Default()
	addHealth(r)

	api := r.Group("/api")
	api.POST("/analyses", analysisHandler.Submit(analysisService))
	api.GET("/analyses/poll", analysisHandler.Poll(analysisService))
	api.GET("/prompts/random", analysisHandler.RandomPrompt())

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
