package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	handlers "github.com/de-tools/defender-bridge/pkg/handlers/defender"
	bridgemiddleware "github.com/de-tools/defender-bridge/pkg/server/middleware"
	"github.com/de-tools/defender-bridge/pkg/services/assignment"
	"github.com/de-tools/defender-bridge/pkg/services/exemption"
	"github.com/de-tools/defender-bridge/pkg/services/recommendation"
)

type WebAPI struct {
	router   *chi.Mux
	logger   *zerolog.Logger
	server   *http.Server
	shutdown time.Duration
}

type Dependencies struct {
	Recommendations recommendation.Service
	Exemptions      exemption.Service
	Assignments     assignment.Service
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	handler := handlers.NewHandler(
		config.Dependencies.Recommendations,
		config.Dependencies.Exemptions,
		config.Dependencies.Assignments,
	)

	router := chi.NewRouter()

	router.Use(bridgemiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations", handler.ListRecommendations)
		r.Get("/recommendations/{recommendation}/suggestions", handler.ListSuggestions)
		r.Post("/exemptions", handler.CreateExemption)
		r.Get("/assignments", handler.ListAssignments)
		r.Post("/assignments", handler.CreateAssignment)
	})

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &WebAPI{
		router:   router,
		logger:   &logger,
		server:   &http.Server{Addr: config.Addr, Handler: router},
		shutdown: shutdownTimeout,
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdown)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
