package main

import (
	"context"
	"fmt"
	"os"
	"time"

	invsvc "crewbase-backend/internal/application/invitations"
	"crewbase-backend/internal/application/license"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/config"
	"crewbase-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("APP_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("App create failed")
	}

	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres handle unavailable")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		log.Info().Msg("Postgres connected")
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}

	// Optional background sweep: expiry is lazy everywhere, the sweep just
	// keeps stored rows in line with what readers already observe.
	if db != nil && cfg.ExpirySweepInterval > 0 {
		sweeper := &invsvc.Service{
			DB:     db,
			Tokens: &tokens.Issuer{SessionSecret: []byte(cfg.SessionJWTSecret)},
			Ledger: &license.Ledger{DB: db},
		}
		go func() {
			ticker := time.NewTicker(cfg.ExpirySweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				n, err := sweeper.ReclaimExpired(context.Background())
				if err != nil {
					log.Warn().Err(err).Msg("Expiry sweep failed")
					continue
				}
				if n > 0 {
					log.Info().Int64("reclaimed", n).Msg("Expired invitations reclaimed")
				}
			}
		}()
	}

	log.Info().Str("port", cfg.Port).Msg(fmt.Sprintf("Server running at http://localhost:%s", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
