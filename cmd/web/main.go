package main

import (
	"context"
	"flag"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/voicesentinel/voicesentinel/internal/collaborators"
	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/envstruct"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/logging"
	"github.com/voicesentinel/voicesentinel/internal/orchestrator"
	"github.com/voicesentinel/voicesentinel/internal/pprofserver"
	"github.com/voicesentinel/voicesentinel/internal/repositories"
	"github.com/voicesentinel/voicesentinel/internal/session"
)

type application struct {
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	records      *repositories.VerificationRepository
	memories     *repositories.MemoryRepository
}

// config is populated from the environment. Empty service URLs and keys leave
// the corresponding collaborator disabled.
type config struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	VoiceScanURL string `env:"VOICESCAN_URL" envDefault:""`
	BiometricURL string `env:"BIOMETRIC_URL" envDefault:""`
}

func main() {
	addr := flag.String("addr", "localhost:4000", "HTTP network address")
	pprofPort := flag.String("pprof-port", ":6060", "Port for pprof listening on localhost")
	dbURL := flag.String("sqlite-url", "./voicesentinel.sqlite", "SQLite URL")
	audioDir := flag.String("audio-dir", os.TempDir(), "Directory for in-flight call audio")
	flag.Parse()

	loggerHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	logger := slog.New(logging.NewContextHandler(loggerHandler))

	// Initialise pprof listening on localhost so that it's not open to the world
	pprofserver.Launch(*pprofPort, logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error(err.Error())
		os.Exit(1)
	}

	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	dbs, err := db.New(*dbURL, logger)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer func() {
		if err = dbs.Close(); err != nil {
			logger.Error(err.Error())
		}
	}()
	logger.Info("connected to db")

	records := repositories.NewVerificationRepository(dbs, logger)
	memories := repositories.NewMemoryRepository(dbs, logger)
	profiles := repositories.NewProfileRepository(dbs, logger)
	baselines := repositories.NewBaselineRepository(dbs, logger)

	app := application{
		logger:   logger,
		records:  records,
		memories: memories,
		orchestrator: orchestrator.New(orchestrator.Options{
			Logger:      logger,
			Sessions:    session.NewStore(),
			Records:     records,
			Memories:    memories,
			Baselines:   baselines,
			Profiles:    profiles,
			Transcriber: collaborators.NewWhisperTranscriber(cfg.OpenAIAPIKey),
			VoiceScorer: collaborators.NewSyntheticVoiceScorer(cfg.VoiceScanURL),
			Biometric:   collaborators.NewBiometric(cfg.BiometricURL),
			AudioDir:    *audioDir,
		}),
	}

	if err = app.configureAndStartServer(context.Background(), *addr); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
