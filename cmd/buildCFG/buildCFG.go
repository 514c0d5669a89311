package buildCFG

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventpass/internal/mailer"
	"eventpass/internal/pass"
)

// Getter is the part of the config loader the builders read from.
type Getter interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type ServerConfig struct {
	Port    string
	Mode    string
	BaseURL string
}

type StorageConfig struct {
	Driver             string
	MigrationsDir      string
	RollbackOnShutdown bool
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

// Inline reports whether no broker is configured.
func (c *RabbitConfig) Inline() bool {
	return c.Url == ""
}

type AuthConfig struct {
	JWTSecret string
}

type SchedulerConfig struct {
	CloseEventsSpec string
}

func BuildServerConfig(cfg Getter, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:    cfg.GetString("server.port"),
		Mode:    cfg.GetString("server.mode"),
		BaseURL: cfg.GetString("server.base_url"),
	}
	if sc.Port == "" {
		sc.Port = "8080"
		log.Warn().Msg("server.port not set, using 8080")
	}
	if sc.Mode == "" {
		sc.Mode = "release"
	}
	return sc
}

func BuildStorageConfig(cfg Getter, log *zerolog.Logger) (StorageConfig, error) {
	sc := StorageConfig{
		Driver:             cfg.GetString("storage.driver"),
		MigrationsDir:      cfg.GetString("db.migrations_dir"),
		RollbackOnShutdown: cfg.GetBool("db.rollback_on_shutdown"),
	}
	if sc.Driver == "" {
		sc.Driver = DriverPostgres
	}
	if sc.Driver != DriverPostgres && sc.Driver != DriverMemory {
		return sc, errors.New("storage.driver must be postgres or memory")
	}
	if sc.MigrationsDir == "" {
		sc.MigrationsDir = "migrations/postgres"
	}
	log.Info().Str("driver", sc.Driver).Msg("storage configured")
	return sc, nil
}

func BuildDBConfig(cfg Getter, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("db.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("db.master_dsn is required")
	}
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("db.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}
	slaves := cfg.GetStringSlice("db.slave_dsns")
	log.Info().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("db configured")
	return master, slaves, opts, nil
}

func BuildRabbitConfig(cfg Getter, log *zerolog.Logger) (*RabbitConfig, error) {
	rc := &RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Inline() {
		log.Warn().Msg("rabbit.url not set, mail jobs run in-process")
		return rc, nil
	}
	if rc.Exchange == "" || rc.Queue == "" {
		return nil, errors.New("rabbit.exchange and rabbit.queue are required")
	}
	return rc, nil
}

func BuildMailConfig(cfg Getter, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		User:     cfg.GetString("mail.user"),
		Password: cfg.GetString("mail.password"),
		From:     cfg.GetString("mail.from"),
	}
	if mc.User == "" {
		log.Warn().Msg("mail.user not set, only events with their own sender can send email")
	}
	return mc
}

func BuildRenderer(cfg Getter) pass.Renderer {
	return pass.NewRenderer(cfg.GetString("qr.endpoint"), cfg.GetInt("qr.size"))
}

func BuildAuthConfig(cfg Getter, log *zerolog.Logger) AuthConfig {
	ac := AuthConfig{JWTSecret: cfg.GetString("auth.jwt_secret")}
	if ac.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret not set, organizer routes are unprotected")
	}
	return ac
}

func BuildSchedulerConfig(cfg Getter) SchedulerConfig {
	sc := SchedulerConfig{CloseEventsSpec: cfg.GetString("scheduler.close_events_spec")}
	if sc.CloseEventsSpec == "" {
		sc.CloseEventsSpec = "@every 5m"
	}
	return sc
}
