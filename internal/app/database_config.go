package app

import (
	"strings"

	"github.com/kmarchetti/conndock/internal/database"
)

// DatabaseOptions converts config values into database connection options.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	switch cfg.Driver {
	case "":
		cfg.Driver = "sqlite"
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		cfg.Host = strings.TrimSpace(c.Postgres.Host)
		cfg.Port = c.Postgres.Port
		cfg.Name = strings.TrimSpace(c.Postgres.Database)
		cfg.User = strings.TrimSpace(c.Postgres.Username)
		cfg.Password = strings.TrimSpace(c.Postgres.Password)
	case "mysql":
		cfg.Host = strings.TrimSpace(c.MySQL.Host)
		cfg.Port = c.MySQL.Port
		cfg.Name = strings.TrimSpace(c.MySQL.Database)
		cfg.User = strings.TrimSpace(c.MySQL.Username)
		cfg.Password = strings.TrimSpace(c.MySQL.Password)
	}

	return cfg
}
