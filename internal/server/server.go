package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	repo "studygroup/internal/repository"
	rtr "studygroup/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func Routes(meetings *repo.Repository, authService *auth.Service) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Logger,    // Log API Request Calls
		middleware.Recoverer, // Turn handler panics into 500s
	)

	router.Route("/", func(r chi.Router) {
		r.Mount("/", rtr.HealthRoutes())
	})

	router.Route("/v1", func(r chi.Router) {
		r.Mount("/users", rtr.AuthRoutes(authService))
		r.Mount("/meetings", rtr.MeetingRoutes(meetings, authService))
	})

	return router
}

// Handler wraps the routes with the configured CORS policy.
func Handler(meetings *repo.Repository, authService *auth.Service) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.Config.AllowedOrigins,
		AllowedHeaders:   []string{"Cookie", "Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PATCH"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
	})

	return c.Handler(Routes(meetings, authService))
}

// Start serves the API until ctx is cancelled or the process receives SIGINT/SIGTERM, then shuts down gracefully and
// waits for pending meeting notifications.
func Start(ctx context.Context, meetings *repo.Repository, authService *auth.Service) error {
	if config.Config == nil {
		log.Panic("❌ Missing or invalid configuration!")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", config.Config.Port),
		Handler: Handler(meetings, authService),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server is listening on port %v\n", config.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		glog.Infof("shutting down server\n")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Config.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		meetings.Wait()
		return err
	})

	return g.Wait()
}
