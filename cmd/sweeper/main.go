// The sweeper runs the campaign expiry job on a cron schedule. It is
// idempotent and safe to run alongside multiple API instances.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"server/internal/adapter/cache"
	"server/internal/adapter/repo"
	"server/internal/funding"
	"server/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "sweeper").Logger()

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	var listCache cache.Cache = cache.Noop{}
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		listCache = cache.NewRedis(redisClient)
	}

	users := repo.NewUserRepository(dbpool)
	campaigns := repo.NewCampaignRepository(dbpool)
	store := repo.NewFundingStore(dbpool)
	svc := funding.New(users, campaigns, store, listCache, logger)

	sweep := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		expired, err := svc.ExpireDue(jobCtx)
		if err != nil {
			logger.Error().Err(err).Msg("expiry sweep failed")
			return
		}
		logger.Info().Int64("expired", expired).Msg("expiry sweep finished")
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.SweepSchedule, sweep); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("invalid sweep schedule")
	}

	// one pass at startup so a restart never leaves stale campaigns waiting
	// for the next tick
	sweep()

	c.Start()
	logger.Info().Str("schedule", cfg.SweepSchedule).Msg("sweeper started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	logger.Info().Msg("sweeper stopped")
}
