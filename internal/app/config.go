package app

import (
	"strings"
	"time"

	"github.com/yungbote/vinoplan-backend/internal/platform/envutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

const (
	AIModeOpenAI = "openai"
	AIModeMock   = "mock"
)

type Config struct {
	Port            string
	LogMode         string
	Environment     string
	Version         string
	AIMode          string
	TierPolicyFile  string
	RedisCacheTTL   time.Duration
	AdminToken      string
	JWTSecretKey    string
	CORSOrigins     []string
	WorkerInterval  time.Duration
	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		Environment:     envutil.String("APP_ENV", "development"),
		Version:         envutil.String("APP_VERSION", "dev"),
		AIMode:          strings.ToLower(envutil.String("AI_MODE", AIModeOpenAI)),
		TierPolicyFile:  envutil.String("TIER_POLICY_FILE", ""),
		RedisCacheTTL:   envutil.Seconds("PLAN_CACHE_REDIS_MAX_TTL_SECONDS", 7*24*3600),
		AdminToken:      envutil.String("WARMUP_ADMIN_TOKEN", ""),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOW_ORIGINS", "")),
		WorkerInterval:  envutil.Millis("WARMUP_WORKER_POLL_MS", 1000),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 15),
	}
	if cfg.AIMode != AIModeOpenAI && cfg.AIMode != AIModeMock {
		log.Warn("unknown AI_MODE, using openai", "ai_mode", cfg.AIMode)
		cfg.AIMode = AIModeOpenAI
	}
	if cfg.AdminToken == "" {
		log.Warn("WARMUP_ADMIN_TOKEN is empty; warmup endpoints are unauthenticated")
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is empty; every bearer token will be rejected")
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
