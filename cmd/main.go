package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/healthscribe/internal/config"
	"github.com/Vovarama1992/healthscribe/internal/domain"
	"github.com/Vovarama1992/healthscribe/internal/infra"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "healthscribe",
	Short: "Clinical speech transcription and translation service",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, refineCmd, translateCmd, speakCmd, transcribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the services every command is built from.
type app struct {
	cfg config.Config
	log *logger.ZapLogger

	live        *infra.DeepgramLive
	refiner     *domain.RefineService
	translator  *domain.TranslateService
	speaker     *domain.SpeechService
	transcriber *domain.TranscribeService
}

func newApp(ctx context.Context) (*app, func(), error) {
	// LOGGER
	zcore, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	zl := logger.NewZapLogger(zcore.Sugar())
	cleanup := func() { _ = zcore.Sync() }

	// ENV
	cfg, err := config.Load(envFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// CLIENTS
	gpt := infra.NewGPTClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, zl)
	stt := infra.NewGoogleSTTService(ctx, cfg.GoogleAPIKey, cfg.GoogleSpeechEndpoint, cfg.SpeechLanguage)
	tts := infra.NewGoogleTTSService(ctx, cfg.GoogleAPIKey, cfg.GoogleTTSEndpoint)
	live := infra.NewDeepgramLive(cfg.DeepgramKey, cfg.DeepgramURL, zl)

	// SERVICES
	refiner := domain.NewRefineService(gpt, cfg.RefineModel, zl)

	a := &app{
		cfg:         cfg,
		log:         zl,
		live:        live,
		refiner:     refiner,
		translator:  domain.NewTranslateService(gpt, cfg.TranslateModel, zl),
		speaker:     domain.NewSpeechService(tts, zl),
		transcriber: domain.NewTranscribeService(stt, refiner, zl),
	}
	return a, cleanup, nil
}
