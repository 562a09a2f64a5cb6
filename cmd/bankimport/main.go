package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/quiz-pool/internal/config"
	"github.com/gokatarajesh/quiz-pool/internal/question"
	"github.com/gokatarajesh/quiz-pool/internal/storage"
)

// bankimport loads a master_questions.json file into the postgres question bank.
func main() {
	var (
		dataDir = flag.String("data", "data", "Directory containing "+storage.MasterFile)
		timeout = flag.Duration("timeout", time.Minute, "Overall import timeout")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Warn().Err(err).Msg("could not load .env file")
		}
	}

	var pg config.Postgres
	if err := env.Parse(&pg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse postgres config")
	}
	var poolCfg config.Pool
	if err := env.Parse(&poolCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse pool config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	questions, err := storage.NewFileStore(*dataDir).LoadQuestions(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("file", filepath.Join(*dataDir, storage.MasterFile)).Msg("failed to read master bank")
	}

	db, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer db.Close()

	if err := storage.NewPostgresStore(db).UpsertQuestions(ctx, questions); err != nil {
		log.Fatal().Err(err).Msg("failed to import questions")
	}

	perLevel := zerolog.Dict()
	for level, qs := range question.GroupByLevel(questions, question.ParseLevels(poolCfg.Levels)) {
		perLevel.Int(level, len(qs))
	}
	log.Info().Int("questions", len(questions)).Dict("levels", perLevel).Msg("master bank imported")
}
