// Package server wires the share API together: database, migrations,
// host adapters, services and the HTTP server, and handles graceful
// shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/config"
	"github.com/dmitrijs2005/sharekeeper/internal/server/host"
	"github.com/dmitrijs2005/sharekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	shareService *services.ShareService
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	cipher, err := cryptox.NewServerCipher([]byte(c.ServerSecret))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("server cipher error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	directory := host.NewDirectory(db, rm)
	policy := host.NewPolicy(host.NewAppConfig(db, rm), directory)

	ss := services.NewShareService(db, rm, services.NewRevisionService(cipher), directory, policy, c,
		logger.With("module", "share_service"))

	return &App{config: c, logger: logger, db: db, repomanager: rm, shareService: ss}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.shareService,
		app.config.SecretKey, app.config.RequestTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run applies migrations and serves until a signal arrives or ctx is done.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
	return nil
}
