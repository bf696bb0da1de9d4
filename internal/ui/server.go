// Package ui provides the web-based lineage viewer.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/ui/notifier"
	"github.com/leapstack-labs/sorlineage/internal/ui/router"
)

const debounceDelay = 100 * time.Millisecond

// Server is the main UI server.
type Server struct {
	engine       *engine.Engine
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	dev          bool
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Engine        *engine.Engine
	Port          int
	Watch         bool
	Dev           bool
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		engine:       cfg.Engine,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the HTTP handler with middleware and all routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.engine, s.sessionStore, s.notifier, s.logger, s.dev); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.engine.Source() != nil {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether dev mode (page hot reload) is on.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// reload rebuilds the lineage and tells every open page when the build
// changed. Failed reloads keep the previous build.
func (s *Server) reload(ctx context.Context) {
	b, changed, err := s.engine.Reload(ctx)
	if err != nil {
		s.logger.Error("reload failed, keeping previous lineage", "error", err)
		return
	}
	if !changed {
		return
	}
	s.logger.Info("lineage reloaded", "fingerprint", b.Fingerprint, "sheets", len(b.Sheets))
	s.notifier.Broadcast(notifier.Event{Fingerprint: b.Fingerprint})
}

// watchFiles watches the workbook source and reloads on change.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	targets := newWatchTargets(s.engine.Source().Paths())
	for _, dir := range targets.dirs() {
		if err := watcher.Add(dir); err != nil {
			// Don't fail - continue without watching this directory
			s.logger.Error("failed to watch directory", "dir", dir, "error", err)
		}
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !targets.matches(event.Name) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.logger.Debug("source changed, reloading", "file", name)
				s.reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchTargets maps source paths to the directories fsnotify watches.
// A file is watched through its parent directory so editors that replace
// the file on save are still seen; a directory matches its CSV files.
type watchTargets struct {
	files   map[string]struct{}
	csvDirs map[string]struct{}
	order   []string
}

func newWatchTargets(paths []string) *watchTargets {
	t := &watchTargets{
		files:   make(map[string]struct{}),
		csvDirs: make(map[string]struct{}),
	}
	seen := make(map[string]struct{})
	addDir := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		t.order = append(t.order, dir)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			t.csvDirs[p] = struct{}{}
			addDir(p)
			continue
		}
		t.files[p] = struct{}{}
		addDir(filepath.Dir(p))
	}
	return t
}

func (t *watchTargets) dirs() []string {
	return t.order
}

func (t *watchTargets) matches(name string) bool {
	name = filepath.Clean(name)
	if _, ok := t.files[name]; ok {
		return true
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return false
	}
	_, ok := t.csvDirs[filepath.Dir(name)]
	return ok
}
