package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/adapters/audio"
	"github.com/FairyDevicesRD/ai.chat.kmp/adapters/imaging"
	"github.com/FairyDevicesRD/ai.chat.kmp/adapters/llm"
	"github.com/FairyDevicesRD/ai.chat.kmp/adapters/mimi"
	"github.com/FairyDevicesRD/ai.chat.kmp/adapters/stt"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
	"github.com/FairyDevicesRD/ai.chat.kmp/internal/config"
	"github.com/FairyDevicesRD/ai.chat.kmp/internal/gateway"
	"github.com/FairyDevicesRD/ai.chat.kmp/internal/session"
	"github.com/FairyDevicesRD/ai.chat.kmp/usecase"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	mimiConfig := mimi.Config{
		AuthURL:    cfg.MimiAuthURL,
		ServiceURL: cfg.MimiServiceURL,
		Credentials: repositories.Credentials{
			ApplicationID: cfg.MimiApplicationID,
			ClientID:      cfg.MimiClientID,
			ClientSecret:  cfg.MimiClientSecret,
			Scopes:        repositories.DefaultScopes,
		},
	}

	tokens, err := mimi.NewTokenService(mimiConfig, repositories.SystemClock{}, logger)
	if err != nil {
		logger.Fatal("failed to create token service", zap.Error(err))
	}

	var recognizer repositories.SpeechRecognizer
	switch cfg.ASREngine {
	case config.EngineGoogle:
		recognizer = stt.NewGoogleRecognizer("", logger)
	default:
		recognizer = mimi.NewASRService(mimiConfig, tokens, logger)
	}

	agent, err := llm.NewGeminiAgent(ctx, llm.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Endpoint: cfg.GeminiEndpoint,
		Model:    cfg.GeminiModel,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create answer generator", zap.Error(err))
	}

	synthesizer := mimi.NewTTSService(mimiConfig, tokens, logger)
	conversation := usecase.NewConversationUseCase(recognizer, agent, synthesizer, logger)

	recorder := audio.NewRecorder(logger)
	player := audio.NewPlayer(logger)
	controller := session.NewController(conversation, recorder, player, imaging.NewEditor(), logger)

	hub := gateway.NewHub(controller, logger)
	go hub.Run()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	gateway.InitRoutes(e, controller, hub, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()
	logger.Info("voice chat started",
		zap.String("port", cfg.Port),
		zap.String("asrEngine", cfg.ASREngine))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	controller.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
}
