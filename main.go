package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-admin-backend/admin"
	"github.com/rpupo63/portfolio-admin-backend/api"
	"github.com/rpupo63/portfolio-admin-backend/cache"
	"github.com/rpupo63/portfolio-admin-backend/config"
	"github.com/rpupo63/portfolio-admin-backend/database"
	"github.com/rpupo63/portfolio-admin-backend/models"
	"github.com/rpupo63/portfolio-admin-backend/services"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg := config.New()
	setupLogging(cfg)
	log.Info().Msg("Initializing app...")

	if err := loadConfigOverlays(cfg); err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	// Overlays may change the log settings.
	setupLogging(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	currentDB := database.New(db)
	defer currentDB.Close()

	// If generating models, run generation and exit
	if config.GetBool(cfg, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(cfg, "GENERATE_COLUMN_REPORT", false) {
		log.Info().Msg("Generating column mismatch report...")
		if _, err := models.ColumnMismatchReport(db); err != nil {
			log.Fatal().Err(err).Msg("Error generating column report")
		}
		return
	}

	if config.GetBool(cfg, "AUTO_MIGRATE", false) {
		if err := models.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Error migrating models")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objectStore, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        config.GetString(cfg, "STORAGE_S3_ENDPOINT", ""),
		Region:          config.GetString(cfg, "STORAGE_S3_REGION", "us-east-1"),
		AccessKeyID:     config.GetString(cfg, "STORAGE_ACCESS_KEY_ID", ""),
		SecretAccessKey: config.GetString(cfg, "STORAGE_SECRET_ACCESS_KEY", ""),
		PublicBaseURL:   config.GetString(cfg, "STORAGE_PUBLIC_URL", ""),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing object storage")
	}
	coordinator := storage.NewCoordinator(
		objectStore,
		config.GetInt(cfg, "UPLOAD_CACHE_CONTROL", 3600),
		config.GetInt(cfg, "UPLOAD_CONCURRENCY", 4),
	)

	rdb := cache.NewRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	projectCache := cache.NewProjectStore(
		currentDB.ProjectRepo(),
		rdb,
		config.GetSeconds(cfg, "CACHE_TTL_SECONDS", 5*time.Minute),
	)

	authenticator, err := services.NewSupabaseAuth(services.SupabaseAuthConfig{
		ProjectURL: config.GetString(cfg, "SUPABASE_URL", ""),
		AnonKey:    config.GetString(cfg, "SUPABASE_ANON_KEY", ""),
		JWTSecret:  config.GetString(cfg, "SUPABASE_JWT_SECRET", ""),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing authentication")
	}

	registry := admin.NewRegistry(admin.Deps{
		Table: currentDB.ProjectRepo(),
		Media: coordinator,
		Buckets: admin.Buckets{
			Images: config.GetString(cfg, "IMAGE_BUCKET", "project-images"),
			Videos: config.GetString(cfg, "VIDEO_BUCKET", "project-videos"),
		},
		Listeners: []admin.ChangeListener{projectCache},
		InboxSize: 50,
	})
	go registry.RunSweeper(ctx, 10*time.Minute, config.GetSeconds(cfg, "WORKSPACE_IDLE_SECONDS", 12*time.Hour))

	// Buffered so Start can still report ErrServerClosed after shutdown.
	errChannel := make(chan error, 2)

	server, err := api.NewServer(api.Dependencies{
		Projects:       projectCache,
		Authenticator:  authenticator,
		Registry:       registry,
		Ping:           currentDB.Ping,
		MaxUploadBytes: int64(config.GetInt(cfg, "MAX_UPLOAD_MB", 50)) << 20,
	}, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	cancel()
	server.ShutdownGracefully(30 * time.Second)
}

// setupLogging configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT.
func setupLogging(cfg map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(cfg, "LOG_LEVEL", "info")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetString(cfg, "LOG_FORMAT", "console") == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// loadConfigOverlays fills keys missing from the environment from CONFIG_PATH
// and then from SSM_PARAMETER_PATH.
func loadConfigOverlays(cfg map[string]string) error {
	if path := config.GetString(cfg, "CONFIG_PATH", ""); path != "" {
		added, err := config.LoadFile(cfg, path)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Int("keys", added).Msg("Loaded config file")
	}

	if prefix := config.GetString(cfg, "SSM_PARAMETER_PATH", ""); prefix != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		added, err := config.LoadSSM(ctx, ssm.NewFromConfig(awsCfg), cfg, prefix)
		if err != nil {
			return err
		}
		log.Info().Str("path", prefix).Int("keys", added).Msg("Loaded SSM parameters")
	}
	return nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
