package console

import (
	"os"

	"github.com/joho/godotenv"

	"gdprdesk/internal/client"
)

type Config struct {
	Server    string
	StatePath string
}

// LoadConfig reads GDPRCTL_SERVER and GDPRCTL_STATE, after an optional .env.
func LoadConfig() Config {
	_ = godotenv.Load()
	cfg := Config{
		Server:    os.Getenv("GDPRCTL_SERVER"),
		StatePath: os.Getenv("GDPRCTL_STATE"),
	}
	if cfg.Server == "" {
		cfg.Server = "http://localhost:8080"
	}
	if cfg.StatePath == "" {
		if path, err := client.DefaultStatePath(); err == nil {
			cfg.StatePath = path
		} else {
			cfg.StatePath = ".gdprctl-session.json"
		}
	}
	return cfg
}
