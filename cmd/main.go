package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "benchmark_dashboard/docs"
	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/handlers"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/poller"
	"benchmark_dashboard/internal/repository"
	"benchmark_dashboard/internal/repository/db"
	"benchmark_dashboard/internal/server"
	"benchmark_dashboard/internal/service"
	"benchmark_dashboard/internal/session"
	"benchmark_dashboard/internal/state"
	"benchmark_dashboard/internal/transport"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	Port string `mapstructure:"port"`
	Log  struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`
	Backend struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`
	Transport struct {
		Transports           []string      `mapstructure:"transports"`
		Reconnect            bool          `mapstructure:"reconnect"`
		ReconnectMaxAttempts int           `mapstructure:"reconnect_max_attempts"`
		ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
		ReconnectDelayMax    time.Duration `mapstructure:"reconnect_delay_max"`
	} `mapstructure:"transport"`
	Poll struct {
		StatusInterval time.Duration `mapstructure:"status_interval"`
		RunsInterval   time.Duration `mapstructure:"runs_interval"`
	} `mapstructure:"poll"`
	Snapshot struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"snapshot"`
	Auth struct {
		SigningKey string        `mapstructure:"signing_key"`
		TokenTTL   time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
}

// @title                       Benchmark Dashboard API
// @version                     1.0
// @description                 Local read API and operator commands over the synchronized benchmark view.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := loadConfig()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// state and alerts
	feed := alert.NewFeed(0, log.Component("alert"))
	store := state.NewStore()
	engine := state.NewEngine(store, feed, log.Component("engine"))

	gw, err := gateway.New(gateway.Config{BaseURL: cfg.Backend.URL, Timeout: cfg.Backend.Timeout}, feed, log)
	if err != nil {
		log.Fatalw("invalid backend config", "err", err)
	}

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(service.Deps{
		Repos:   repos,
		Gateway: gw,
		Store:   store,
		Alerts:  feed,
		Auth:    service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
		Log:     log,
	})
	gw.OnFailure = services.RecordCommandFailure
	engine.OnNotification = services.RecordNotification

	conn, err := transport.New(transport.Config{
		URL:                  cfg.Backend.URL,
		Transports:           cfg.Transport.Transports,
		Reconnect:            cfg.Transport.Reconnect,
		ReconnectMaxAttempts: cfg.Transport.ReconnectMaxAttempts,
		ReconnectDelay:       cfg.Transport.ReconnectDelay,
		ReconnectDelayMax:    cfg.Transport.ReconnectDelayMax,
	}, log)
	if err != nil {
		log.Fatalw("invalid transport config", "err", err)
	}
	sess := session.New(conn, engine, feed, services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		log.Fatalw("failed to start session", "err", err)
	}

	bg, bgCtx := errgroup.WithContext(ctx)
	bg.Go(func() error {
		poller.New(gw, engine, poller.Config{
			StatusInterval: cfg.Poll.StatusInterval,
			RunsInterval:   cfg.Poll.RunsInterval,
		}, log).Run(bgCtx)
		return nil
	})
	bg.Go(func() error {
		services.Snapshotter.Run(bgCtx, cfg.Snapshot.Interval)
		return nil
	})

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, handlers.NewHandler(services, log.Component("http")), log)

	waitForShutdown(cancel, sess, bg, srv, log)
}

func loadConfig() (config, error) {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("BENCHDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", "8080")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("db.path", "dashboard.db")
	viper.SetDefault("backend.url", gateway.DefaultBaseURL)
	viper.SetDefault("backend.timeout", gateway.DefaultTimeout)
	viper.SetDefault("transport.transports", []string{transport.TransportWebsocket, transport.TransportPolling})
	viper.SetDefault("transport.reconnect", true)
	viper.SetDefault("transport.reconnect_max_attempts", 0)
	viper.SetDefault("transport.reconnect_delay", time.Second)
	viper.SetDefault("transport.reconnect_delay_max", 5*time.Second)
	viper.SetDefault("poll.status_interval", poller.DefaultStatusInterval)
	viper.SetDefault("poll.runs_interval", poller.DefaultRunsInterval)
	viper.SetDefault("snapshot.interval", 10*time.Second)
	viper.SetDefault("auth.token_ttl", 12*time.Hour)

	var cfg config
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "dashboard.db")
		path = "dashboard.db"
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then tears down in order:
// push session first so nothing is applied after teardown, then background
// loops, then the HTTP server.
func waitForShutdown(cancel context.CancelFunc, sess *session.Session, bg *errgroup.Group, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	if err := sess.Close(); err != nil {
		log.Warnw("session close failed", "err", err)
	}
	cancel()
	_ = bg.Wait()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
