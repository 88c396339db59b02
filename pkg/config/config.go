package config

import "os"

type Config struct {
	Port              string
	Env               string
	PostgresConnStr   string
	RedisAddr         string
	RedisPassword     string
	JWTSecret         string
	ReconcileSchedule string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		PostgresConnStr:   getEnv("POSTGRES_CONN_STR", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		JWTSecret:         getEnv("JWT_SECRET", "supersecretjwtkey"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 5m"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
