package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/mlexplainer/backend/internal/api"
	"github.com/mlexplainer/backend/internal/catalog"
	"github.com/mlexplainer/backend/internal/config"
	"github.com/mlexplainer/backend/internal/importance"
	"github.com/mlexplainer/backend/internal/ingest"
	"github.com/mlexplainer/backend/internal/logging"
	"github.com/mlexplainer/backend/internal/profile"
	"github.com/mlexplainer/backend/internal/storage"
	"github.com/mlexplainer/backend/internal/validate"
	"github.com/mlexplainer/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

const appName = "ML Results Explainer"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default: next to the executable)")
	flag.Parse()

	if *configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "mlexplainer.yaml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Advanced.LogLevel)
	logger := logging.New("Server")

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatalf("Failed to create directories: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileStore, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	catalogStore, err := openCatalog(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize catalog: %v", err)
	}
	defer catalogStore.Close()

	svc := ingest.NewService(
		fileStore,
		catalogStore,
		validate.NewValidator(cfg.GetMaxUploadSize(), cfg.Analysis.SampleRows),
		ingest.NewPipeline(
			profile.NewProfiler(cfg.Analysis.AnomalyThreshold),
			importance.NewCalculator(cfg.Analysis.MaxFeaturesDisplay),
		),
	)

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.New("Echo")

	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
		BodyLimit:      cfg.GetBodyLimit(),
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Service:       svc,
		Name:          appName,
		Version:       Version,
		MaxUploadSize: cfg.GetMaxUploadSize(),
	}), !embeddedMode)

	if embeddedMode {
		if err := web.RegisterStaticRoutes(e, api.APIPrefix); err != nil {
			logger.Warnf("Failed to register static routes: %v", err)
		} else {
			logger.Info("Serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, *configPath, fileStore.Location(""))

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}

func openStorage(ctx context.Context, cfg *config.AppConfig) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		m := cfg.Storage.Minio
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  m.Endpoint,
			Region:    m.Region,
			Bucket:    m.Bucket,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
		})
	default:
		return storage.NewLocalStore(cfg.GetUploadDir())
	}
}

func openCatalog(cfg *config.AppConfig) (catalog.Store, error) {
	switch cfg.Catalog.Backend {
	case config.BackendDuckDB:
		return catalog.NewDuckStore(catalog.DuckOptions{
			Path:        cfg.Catalog.DuckDBPath,
			MemoryLimit: cfg.Catalog.DuckDBMemory,
		})
	default:
		return catalog.NewMemoryStore(), nil
	}
}

func printBanner(cfg *config.AppConfig, configPath, storageLocation string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           %-48s║\n", appName+" Server")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Storage:   %-46s║\n", cfg.Storage.Backend+" "+storageLocation)
	fmt.Printf("║  Catalog:   %-46s║\n", cfg.Catalog.Backend)
	fmt.Printf("║  Max size:  %-46s║\n", humanize.IBytes(uint64(cfg.GetMaxUploadSize())))
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
