// Package daemon assembles the running service: database, session storage,
// OAuth provider registry and the web surface.
package daemon

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/auth"
	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/dsn"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/web"
	"github.com/authnd/authnd/internal/web/session"
)

// Database engine names accepted in db.gormengine.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start runs the web service until a shutdown signal arrives.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Credential{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	registry, err := auth.NewRegistry(context.Background(), cfg.Webserver.URL, cfg.OAuth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build oauth provider registry")
	}

	checkLDAP(cfg)

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, registry),
	}
}

// openDialector selects the gorm driver for the configured engine.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case EngineMySQL:
		return gormmysql.Open(dsn.MySQL(cfg))
	case EnginePostgres:
		return gormpostgres.Open(dsn.Postgres(cfg))
	case EngineSQLite:
		return sqlite.Open(cfg.DB.SQLitePath)
	default:
		log.Fatal().Str("engine", cfg.DB.GormEngine).Msg("unknown database engine")
		return nil
	}
}

// sessionStorage selects the fiber storage backend for sessions. The sqlite
// engine keeps sessions in process memory; they do not survive a restart.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.MySQL(cfg),
			Table:         "sessions",
		})
	case EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Postgres(cfg),
			Table:         "sessions",
		})
	default:
		log.Warn().Msg("using in-memory session storage, sessions do not survive a restart")

		return session.NewMemoryStorage()
	}
}

func checkLDAP(cfg *config.Config) {
	if !cfg.LDAP.Enabled {
		return
	}

	ldapAuth, err := auth.NewLDAPProvider(cfg.LDAP)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create LDAP provider")
	}

	if err := ldapAuth.TestConnection(); err != nil {
		log.Warn().Err(err).Str("url", cfg.LDAP.URL).
			Msg("LDAP server not reachable at startup")
	}
}
