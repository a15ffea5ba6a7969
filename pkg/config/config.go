package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultAddr = ":8080"
	DefaultDSN  = "forecast.db"
)

// Config holds process settings read from the environment.
type Config struct {
	Addr       string
	DBDriver   string
	DBDSN      string
	SchemaFile string
}

// Load reads .env (when present) and then the FORECAST_* environment variables.
func Load(envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read env file: %v", err)
	}
	return Config{
		Addr:       getenv("FORECAST_ADDR", DefaultAddr),
		DBDriver:   getenv("FORECAST_DB_DRIVER", DriverSQLite),
		DBDSN:      getenv("FORECAST_DB_DSN", DefaultDSN),
		SchemaFile: os.Getenv("FORECAST_SCHEMA_FILE"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
