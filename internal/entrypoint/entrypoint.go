package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/registry"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is syscall.SIGINT, SIGKILL can't be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so running jobs can still
	// report progress.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		log.Fatalf("Failed to load library registry: %v", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.Printf("Error closing library registry: %v", err)
		}
	}()

	if cfg.Library.DefaultPath != "" {
		lib, err := reg.Add(cfg.Library.DefaultName, cfg.Library.DefaultPath)
		switch {
		case errors.Is(err, registry.ErrDuplicateLibrary):
		case err != nil:
			log.Fatalf("Failed to register library at %s: %v", cfg.Library.DefaultPath, err)
		default:
			log.Printf("Registered default library %q at %s", lib.Name, lib.Path)
		}
	}

	if lib, err := reg.Selected(); err == nil {
		log.Printf("Selected library: %q at %s", lib.Name, lib.Path)
	} else {
		log.Printf("WARNING: no library selected. Set 'LIBRARY_PATH' or POST /api/libraries to create one.")
	}

	enricher := newEnricher(cfg.Metadata)

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Tasks.DatabasePath, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportDirectoryQueue(reg),
			tasks.NewSyncMetadataQueue(reg),
			tasks.NewDeleteBooksQueue(reg),
		)
		if enricher != nil {
			taskClient.Register(tasks.NewEnrichBookQueue(reg, enricher))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	inbox := scheduler.NewInboxImportScheduler(reg, scheduler.InboxConfig{
		Enabled:  cfg.Inbox.Enabled,
		Dir:      cfg.Inbox.Dir,
		Schedule: cfg.Inbox.Schedule,
	})
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if err := inbox.Start(schedCtx); err != nil {
		log.Printf("WARNING: inbox import disabled: %v", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Libraries: reg,
		Enricher:  enricher,
		Version:   version,
	}
	// A nil *tasks.Client must not end up as a non-nil interface.
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		inbox.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// newEnricher registers the enabled metadata providers in lookup order.
func newEnricher(cfg config.Metadata) *metadata.Enricher {
	providers := metadata.NewRegistry()
	if cfg.OpenLibraryEnabled {
		providers.Register(metadata.NewOpenLibraryClient(cfg.OpenLibraryURL))
	}
	if cfg.GoogleBooksEnabled {
		providers.Register(metadata.NewGoogleBooksClient(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey))
	}
	if len(providers.Providers()) == 0 {
		log.Printf("WARNING: no metadata providers enabled. Metadata lookup endpoints will be disabled.")
		return nil
	}
	return metadata.NewEnricher(providers)
}
