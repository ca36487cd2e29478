package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/urfave/cli/v2"

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/db"
	_ "github.com/user/postboard-go/docs" // Generated Swagger docs
	"github.com/user/postboard-go/posts"
	"github.com/user/postboard-go/respond"
	"github.com/user/postboard-go/users"
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	server *serverOptions
	db     pinger
	users  *users.UserHandlers
	posts  *posts.PostHandlers
	logger *slog.Logger
}

type serverOptions struct {
	allowedOrigins []string
	requestTimeout time.Duration
}

// newRouter builds the chi router with the global middleware stack, the resource routes
// (served both at the root and under /api), the health check and the Swagger UI.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(d.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.server.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.server.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(recoverJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperror.NewNotFoundError("route not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, apperror.ErrorResponse{Error: "method not allowed"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/healthz", handleHealth(d.db))

	resources := func(r chi.Router) {
		r.Route("/users", d.users.RegisterRoutes)
		r.Route("/posts", d.posts.RegisterRoutes)
	}
	resources(r)
	r.Route("/api", resources)

	return r
}

// recoverJSON turns a panic in a handler into a 500 JSON error body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			respond.Error(w, r, apperror.NewInternalError("internal server error", fmt.Errorf("panic: %v", rvr)))
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports whether the database answers a ping.
func handleHealth(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			respond.Error(w, r, apperror.NewDatabaseError("database unavailable", err))
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts down gracefully.
func (a *application) serve(cCtx *cli.Context) error {
	cfg := a.cfg

	if cCtx.Bool("migrate") {
		if err := db.RunMigrations(cfg.DB, cfg.MigrationsDir, a.logger); err != nil {
			return err
		}
		a.logger.Info("migrations applied")
	}

	pool, err := db.NewPool(cCtx.Context, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Manual dependency injection: repositories get the pool, services get the
	// repositories, handlers get the services.
	userService := users.NewUserService(users.NewPostgresRepository(pool), cfg.Security.PasswordHashCost)
	postService := posts.NewPostService(posts.NewPostgresRepository(pool))

	handler := newRouter(routerDeps{
		server: &serverOptions{
			allowedOrigins: cfg.Server.AllowedOrigins,
			requestTimeout: cfg.Server.RequestTimeout,
		},
		db:     pool,
		users:  users.NewUserHandlers(userService),
		posts:  posts.NewPostHandlers(postService),
		logger: a.logger,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		a.logger.Info("server shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.logger.Info("server stopped gracefully")
	return nil
}
