package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"voice-808/internal/config"
	apphttp "voice-808/internal/http"
	"voice-808/internal/repository/sqlite"
	"voice-808/internal/service"
	"voice-808/internal/storage"
	"voice-808/internal/tts"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	tokenRepo := sqlite.NewAuthTokenRepository(db)
	generationRepo := sqlite.NewGenerationRepository(db)
	usageRepo := sqlite.NewUsageRepository(db)

	userService := service.NewUserService(userRepo, tokenRepo, service.UserServiceConfig{
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	generationService := service.NewGenerationService(generationRepo, nil)
	usageService := service.NewUsageService(usageRepo, generationRepo, service.UsageLimits{
		MonthlyCharacters: cfg.Usage.MonthlyCharacterLimit,
		MonthlyAPICalls:   cfg.Usage.MonthlyAPILimit,
	}, nil)

	ttsClient, err := tts.NewClient(tts.Config{
		BaseURL:    cfg.TTS.BaseURL,
		Credential: ttsCredential(cfg),
		Timeout:    cfg.TTS.Timeout,
	})
	if err != nil {
		logger.Fatalf("setup tts client: %v", err)
	}

	voiceCfg := service.VoiceServiceConfig{
		Generations:  generationService,
		Usage:        usageService,
		Synthesizer:  ttsClient,
		EnforceQuota: cfg.Usage.Enforce,
		Logger:       logger,
	}
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		archive, err := storage.NewArchive(storageSvc, ttsClient, storage.ArchiveConfig{
			Bucket:     cfg.Storage.Bucket,
			KeyPrefix:  cfg.Storage.KeyPrefix,
			PresignTTL: cfg.Storage.PresignTTL,
		})
		if err != nil {
			logger.Fatalf("setup audio archive: %v", err)
		}
		voiceCfg.Archive = archive
	} else {
		logger.Info("no storage bucket configured, audio stays on the tts backend")
	}
	voiceService := service.NewVoiceService(voiceCfg)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler, err := apphttp.NewHandler(apphttp.Options{
		Users:    userService,
		Voice:    voiceService,
		Usage:    usageService,
		Database: db,
		Backend:  apphttp.PingFunc(ttsClient.Ping),
		Logger:   logger,
		Cookie: apphttp.CookieConfig{
			Secure: cfg.Production(),
			MaxAge: cfg.Auth.TokenTTL,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthRateLimit:  cfg.Auth.RateLimit,
		Development:    !cfg.Production(),
	})
	if err != nil {
		logger.Fatalf("setup http handler: %v", err)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func ttsCredential(cfg config.Config) tts.Credential {
	if secret := strings.TrimSpace(cfg.TTS.JWTSecret); secret != "" {
		return tts.SignedToken{Secret: []byte(secret)}
	}
	return tts.StaticKey(cfg.TTS.APIKey)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving audio to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
