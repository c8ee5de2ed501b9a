package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zeni-bff/internal/application/adminauth"
	"github.com/zeni-bff/internal/application/delivery"
	"github.com/zeni-bff/internal/application/notification"
	"github.com/zeni-bff/internal/application/realtime"
	"github.com/zeni-bff/internal/config"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/awsinfra"
	"github.com/zeni-bff/internal/infrastructure/dynamo"
	jwtinfra "github.com/zeni-bff/internal/infrastructure/jwt"
	"github.com/zeni-bff/internal/infrastructure/memory"
	"github.com/zeni-bff/internal/infrastructure/smtp"
	"github.com/zeni-bff/internal/infrastructure/sns"
	"github.com/zeni-bff/internal/infrastructure/webpush"
	"github.com/zeni-bff/internal/jobs"
	"github.com/zeni-bff/internal/pkg/clock"
	transporthttp "github.com/zeni-bff/internal/transport/http"
)

type pushSender interface {
	Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushReport, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	if cfg.AdminEmail == "" {
		slog.Warn("ADMIN_EMAIL is empty; every admin sign-in will be refused")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	ledger, err := newLedger(ctx, cfg, clk)
	if err != nil {
		log.Fatalf("notification store: %v", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	push, err := newPushSender(ctx, cfg)
	if err != nil {
		slog.Warn("push provider not available", "provider", cfg.PushProvider, "err", err)
		push = nil
	}

	otpStore := memory.NewOTPStore(cfg.OTPTTL, cfg.OTPHashCost, clk)
	live := realtime.NewRegistry()

	authSvc := adminauth.NewService(adminauth.ServiceDeps{
		Store:     otpStore,
		Mailer:    smtp.NewOTPMailer(smtp.NewMailer(cfg), cfg.SMTPMaxRetries),
		Signer:    jwtProvider,
		Authorize: adminauth.SingleAdmin(cfg.AdminEmail),
		OTPTTL:    cfg.OTPTTL,
		ExpiresIn: cfg.JWTExpiresIn,
		Clock:     clk,
	})
	deliverySvc := delivery.NewService(delivery.ServiceDeps{
		Ledger:      ledger,
		Push:        push,
		Broadcaster: live,
		Clock:       clk,
	})

	jobs.StartOTPSweepJob(ctx, cfg.OTPSweepInterval, otpStore)
	jobs.StartLivePruneJob(ctx, cfg.WSPruneInterval, live)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		AdminAuth: authSvc,
		Ledger:    ledger,
		Delivery:  deliverySvc,
		Live:      live,
		Tokens:    jwtProvider,
		Clock:     clk,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket connections.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "push", cfg.PushProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	slog.Info("server stopped")
}

// newLedger wires the notification service to the configured store backend.
func newLedger(ctx context.Context, cfg *config.Config, clk clock.Clocker) (notification.Service, error) {
	switch cfg.StoreBackend {
	case "", "memory":
		return notification.NewService(memory.NewNotificationRepo(), memory.NewDeviceRepo(), clk), nil
	case "dynamo":
		awsCfg, err := awsinfra.Load(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return notification.NewService(
			dynamo.NewNotificationRepo(client, cfg.DynamoTables.Notifications),
			dynamo.NewDeviceRepo(client, cfg.DynamoTables.Devices),
			clk,
		), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// newPushSender returns nil with no error when push is disabled.
func newPushSender(ctx context.Context, cfg *config.Config) (pushSender, error) {
	switch cfg.PushProvider {
	case "":
		return nil, nil
	case "sns":
		awsCfg, err := awsinfra.Load(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sns.NewSender(sns.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.SNSPlatformApplicationARN, cfg.PushConcurrency)
	case "webpush":
		return webpush.NewSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, cfg.PushConcurrency)
	default:
		return nil, fmt.Errorf("unknown PUSH_PROVIDER %q", cfg.PushProvider)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
