// a stupid package name...
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/marcopiovanello/m3u8-dl/server/archiver"
	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/kv"
	"github.com/marcopiovanello/m3u8-dl/server/internal/metadata"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
	"github.com/marcopiovanello/m3u8-dl/server/internal/queue"
	"github.com/marcopiovanello/m3u8-dl/server/logging"
	middlewares "github.com/marcopiovanello/m3u8-dl/server/middleware"
	"github.com/marcopiovanello/m3u8-dl/server/playlist"
	"github.com/marcopiovanello/m3u8-dl/server/rest"
	m3u8RPC "github.com/marcopiovanello/m3u8-dl/server/rpc"
	"github.com/marcopiovanello/m3u8-dl/server/status"
	"github.com/marcopiovanello/m3u8-dl/server/user"
	"golang.org/x/sync/errgroup"

	bolt "go.etcd.io/bbolt"
)

type serverConfig struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	archive *archiver.Archiver
	journal *logging.Journal
}

// core is the part of the application shared by the server and the headless
// command.
type core struct {
	mq      *queue.MessageQueue
	store   *kv.Store
	orch    *orchestrator.Orchestrator
	journal *logging.Journal
}

func newCore(cfg *config.Config, boltdb *bolt.DB, overrides ...func(o *orchestrator.Options)) (*core, error) {
	store, err := kv.NewStore(boltdb)
	if err != nil {
		return nil, err
	}

	mq := queue.NewMessageQueue(0)
	mq.SetupConsumer()

	settings := cfg.Settings()

	var fallback metadata.PlaylistFunc
	if settings.ProbePlaylistFallback {
		fallback = playlist.NewInspector(&http.Client{Timeout: 15 * time.Second}).Duration
	}

	journal := logging.NewJournal(slog.Default())

	opts := orchestrator.Options{
		Config:  cfg,
		Store:   store,
		Queue:   mq,
		Journal: journal,
		Prober:  metadata.NewDurationFetcher(settings.ProbeTimeout, fallback),
	}
	for _, override := range overrides {
		override(&opts)
	}

	orch := orchestrator.New(opts)

	return &core{
		mq:      mq,
		store:   store,
		orch:    orch,
		journal: journal,
	}, nil
}

func (c *core) close() {
	c.orch.Close()
	c.mq.Stop()
}

func setupLogging(ctx context.Context, cfg *config.Config) (func(), error) {
	writers := []io.Writer{os.Stdout}
	cleanup := func() {}

	// file based logging
	if cfg.Logging.EnableFileLogging {
		logger, err := logging.NewRotableLogger(cfg.Logging.LogPath)
		if err != nil {
			return nil, err
		}

		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logger.Rotate()
				}
			}
		}()

		writers = append(writers, logger)
		cleanup = func() { logger.Close() }
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// make the new logger the default one with all the new writers
	slog.SetDefault(logger)

	return cleanup, nil
}

func Run(ctx context.Context, cfg *config.Config) error {
	closeLog, err := setupLogging(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := cfg.Authentication.Validate(); err != nil {
		return err
	}

	if cfg.Authentication.RequireAuth && cfg.Authentication.TokenSecret == "" {
		slog.Warn("no token secret configured, sessions will not survive a restart")
		cfg.Authentication.TokenSecret = uuid.NewString()
	}

	dataDir := cfg.Paths.LocalDatabasePath
	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		return err
	}

	boltdb, err := bolt.Open(filepath.Join(dataDir, "session.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	defer boltdb.Close()

	var (
		sqlDB   *sql.DB
		archive *archiver.Archiver
	)
	if cfg.AutoArchive {
		sqlDB, err = archiver.Open(dataDir)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		archive, err = archiver.New(sqlDB)
		if err != nil {
			return err
		}
	}

	c, err := newCore(cfg, boltdb)
	if err != nil {
		return err
	}

	if archive != nil {
		c.orch.Subscribe(func(e internal.Event) {
			if e.Kind != internal.EventRemoved {
				archive.Publish(e.Task)
			}
		})
	}

	c.orch.CheckTool()

	go c.store.Restore(func(req internal.DownloadRequest) error {
		_, err := c.orch.Submit(req.URL, req.Filename)
		return err
	})

	srv, err := newServer(serverConfig{
		cfg:     cfg,
		orch:    c.orch,
		archive: archive,
		journal: c.journal,
	})
	if err != nil {
		return err
	}

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(cfg.Server.Host, "/") {
		network = "unix"
		address = cfg.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		return err
	}

	slog.Info("m3u8-dl started", slog.String("address", address))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// unfinished tasks are resubmitted on the next start
	if perr := c.store.Persist(); perr != nil {
		slog.Error("failed to persist session", slog.Any("err", perr))
		err = errors.Join(err, perr)
	}

	c.close()
	if archive != nil {
		archive.Close()
	}

	return err
}

func newServer(c serverConfig) (*http.Server, error) {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)

	baseUrl := c.cfg.Server.BaseURL

	routes, err := rest.ApplyRouter(&rest.ContainerArgs{
		Config:  c.cfg,
		Orch:    c.orch,
		Archive: c.archive,
	})
	if err != nil {
		return nil, err
	}

	rpcRoutes, err := m3u8RPC.ApplyRouter(c.cfg, m3u8RPC.Container(c.orch))
	if err != nil {
		return nil, err
	}

	mount := func(r chi.Router) {
		// Authentication routes
		if c.cfg.Authentication.RequireAuth {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", user.Login(c.cfg))
				r.Get("/logout", user.Logout)
			})
		}

		// REST API handlers
		r.Route("/api/v1", routes)

		// RPC handlers
		r.Route("/rpc", rpcRoutes)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.ApplyAuthenticationByConfig(c.cfg))

			// Logging
			r.Route("/log", logging.ApplyRouter(c.journal))

			// Status
			r.Route("/status", status.ApplyRouter(status.New(c.cfg, c.orch)))
		})
	}

	if baseUrl == "" {
		mount(r)
	} else {
		r.Route(baseUrl, mount)
	}

	return &http.Server{Handler: r}, nil
}
