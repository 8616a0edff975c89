package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DBDriver            string // postgres | mysql | sqlite
	DatabaseURL         string
	RedisURL            string
	SessionSecret       string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	PermissionSeedFile  string
	IntegrationTokenTTL time.Duration
	StrictOrgRoles      bool
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("INTEGRATION_TOKEN_TTL", "720h")
	v.SetDefault("STRICT_ORG_ROLES", false)
	v.SetDefault("ALLOW_CROSS_SITE_DEV", false)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	env := strings.ToLower(v.GetString("APP_ENV"))
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL_DEV")
	switch env {
	case "production":
		dbURL = v.GetString("DATABASE_URL_PROD")
	case "test":
		dbURL = v.GetString("DATABASE_URL_TEST")
	}

	driver := strings.ToLower(v.GetString("DB_DRIVER"))
	switch driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", driver)
	}

	ttl := v.GetDuration("INTEGRATION_TOKEN_TTL")
	if ttl <= 0 {
		return nil, fmt.Errorf("config: INTEGRATION_TOKEN_TTL must be positive")
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DBDriver:            driver,
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		PermissionSeedFile:  v.GetString("PERMISSION_SEED_FILE"),
		IntegrationTokenTTL: ttl,
		StrictOrgRoles:      v.GetBool("STRICT_ORG_ROLES"),
	}, nil
}
