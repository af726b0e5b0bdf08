// @title        Restaurant Directory API
// @version      1.0
// @description  Account administration for the restaurant directory: role-gated user search with session-remembered filters.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/99minutos/restaurant-directory/docs"
	"github.com/99minutos/restaurant-directory/internal/api"
	"github.com/99minutos/restaurant-directory/internal/api/handler"
	"github.com/99minutos/restaurant-directory/internal/api/middleware"
	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
	"github.com/99minutos/restaurant-directory/internal/core/service"
	"github.com/99minutos/restaurant-directory/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/restaurant-directory/internal/infrastructure/db/mongo"
	rediscache "github.com/99minutos/restaurant-directory/internal/infrastructure/db/redis"
	"github.com/99minutos/restaurant-directory/internal/infrastructure/db/sqlite"
	"github.com/99minutos/restaurant-directory/internal/pkg/config"
	"github.com/99minutos/restaurant-directory/pkg/logger"
)

const (
	serviceName     = "restaurant-directory"
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

// stores bundles the account store and filter store chosen by configuration.
type stores struct {
	accounts  ports.AccountRepository
	roles     ports.RoleRepository
	filters   ports.FilterStore
	readiness map[string]handler.Pinger
	closers   []func(context.Context) error
}

func (s *stores) close(ctx context.Context, log zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}
}

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer st.close(context.Background(), log)

	if err := st.roles.EnsureRoles(ctx, domain.DefaultRoles); err != nil {
		log.Fatal().Err(err).Msg("seed roles")
	}

	authService := service.NewAuthService(st.accounts, cfg.JWTSecret, tokenTTL)
	directoryService := service.NewDirectoryService(
		st.accounts,
		st.roles,
		st.filters,
		domain.ParseRoleMatch(cfg.Directory.RoleMatch),
		logger.Component("directory"),
	)

	e := api.NewRouter(api.Deps{
		AuthService:      authService,
		DirectoryService: directoryService,
		Roles:            st.accounts,
		JWTSecret:        cfg.JWTSecret,
		Logger:           log,
		Session: middleware.SessionConfig{
			MaxAge: cfg.Session.TTL,
			Secure: cfg.Session.CookieSecure,
		},
		Readiness: st.readiness,
	})

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Str("sessions", cfg.Session.Backend).
			Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{readiness: map[string]handler.Pinger{}}

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		st.accounts = sqlite.NewAccountRepository(db)
		st.roles = sqlite.NewRoleRepository(db)
		st.readiness["sqlite"] = handler.PingerFunc(db.PingContext)
		st.closers = append(st.closers, func(context.Context) error { return db.Close() })

	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, client.Disconnect)

		accounts := mongodb.NewAccountRepository(db)
		if err := accounts.EnsureIndexes(ctx); err != nil {
			st.close(ctx, log)
			return nil, err
		}
		st.accounts = accounts
		st.roles = mongodb.NewRoleRepository(db)
		st.readiness["mongodb"] = handler.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		})
	}

	switch cfg.Session.Backend {
	case config.SessionMemory:
		log.Warn().Msg("directory filters kept in process memory; they are lost on restart and not shared between replicas")
		st.filters = memory.NewFilterStore()

	default:
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			st.close(ctx, log)
			return nil, err
		}
		st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
		st.filters = rediscache.NewFilterStore(rdb, cfg.Session.TTL)
		st.readiness["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	return st, nil
}
