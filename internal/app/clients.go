package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/ai"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/platform/openai"
	"github.com/yungbote/vinoplan-backend/internal/platform/redis"
	"github.com/yungbote/vinoplan-backend/internal/temporalx"
)

type Clients struct {
	Redis       *goredis.Client
	AI          ai.Generator
	Temporal    temporalsdkclient.Client
	TemporalCfg temporalx.Config
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis (optional hot cache)
	rdb, err := redis.NewClient(log, redis.LoadConfig())
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	// AI collaborator
	var generator ai.Generator
	switch cfg.AIMode {
	case AIModeMock:
		log.Warn("AI_MODE=mock: plans come from the offline generator")
		generator = ai.NewMockGenerator()
	default:
		oc, err := openai.NewClient(log, openai.LoadConfig())
		if err != nil {
			closeRedis(rdb)
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		generator = ai.NewOpenAIGenerator(log, oc)
	}

	// Temporal (optional durable driver)
	tcfg := temporalx.LoadConfig()
	tc, err := temporalx.NewClient(log, tcfg)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{
		Redis:       rdb,
		AI:          generator,
		Temporal:    tc,
		TemporalCfg: tcfg,
	}, nil
}

func closeRedis(rdb *goredis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (c Clients) Close() {
	closeRedis(c.Redis)
	if c.Temporal != nil {
		c.Temporal.Close()
	}
}
