// Package server wires configuration, storage, the secret backend and the
// contact service together and runs the HTTP and gRPC endpoints until the
// process is signaled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/cryptox"
	"github.com/dmitrijs2005/tracekeeper/internal/logging"
	"github.com/dmitrijs2005/tracekeeper/internal/server/config"
	"github.com/dmitrijs2005/tracekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tracekeeper/internal/server/secretstore"
	"github.com/dmitrijs2005/tracekeeper/internal/server/services"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	gs "github.com/dmitrijs2005/tracekeeper/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	contacts *services.ContactService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	suite, err := cryptox.ParseSuite(c.TokenCipher)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	backend, err := newSecretBackend(ctx, c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("secret backend init error: %w", err)
	}

	keys := secretstore.NewStore(backend, c.SecretBackendTimeout, logger)
	contacts := services.NewContactService(db, rm, keys, tempid.NewCodec(suite), c.KeyPath, logger)

	return &App{config: c, logger: logger, db: db, contacts: contacts}, nil
}

func newSecretBackend(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (secretstore.Backend, error) {
	switch c.SecretBackend {
	case config.BackendVault:
		return secretstore.NewVaultBackend(c.VaultAddr, c.VaultToken, c.VaultMount)

	case config.BackendS3:
		client, err := secretstore.NewS3Client(ctx, secretstore.S3Options{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, err
		}
		return secretstore.NewS3Backend(client, c.S3Bucket), nil

	case config.BackendCouchDB:
		client, err := kivik.New("couch", c.CouchDBURL)
		if err != nil {
			return nil, fmt.Errorf("couchdb connect: %w", err)
		}
		exists, err := client.DBExists(ctx, c.CouchDBName)
		if err != nil {
			return nil, fmt.Errorf("couchdb check database: %w", err)
		}
		if !exists {
			if err := client.CreateDB(ctx, c.CouchDBName); err != nil {
				return nil, fmt.Errorf("couchdb create database: %w", err)
			}
			logger.Info(ctx, "created couchdb database", "name", c.CouchDBName)
		}
		return secretstore.NewCouchDBBackend(client, c.CouchDBName), nil

	case config.BackendPostgres:
		return rm.Secrets(db), nil

	case config.BackendMemory:
		logger.Warn(ctx, "using in-memory secret backend; the key is lost on restart")
		return secretstore.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown secret backend %q", c.SecretBackend)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.contacts, app.config.JWTSecret)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.contacts, app.logger)
	srv := &http.Server{
		Addr:         app.config.HTTPAddr,
		Handler:      httpapi.NewRouter(h, []byte(app.config.JWTSecret), app.logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or a server fails, then
// waits for both servers to stop and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
