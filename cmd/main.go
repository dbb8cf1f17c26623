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

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"chat-gateway/handler"
	"chat-gateway/internal/config"
	"chat-gateway/internal/integrations/claude"
	"chat-gateway/internal/integrations/openai"
	"chat-gateway/internal/integrations/paramstore"
	"chat-gateway/internal/responder"
	"chat-gateway/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}
	cfg := config.FromEnv(os.LookupEnv)
	setupLogging(cfg)

	if cfg.ParamPrefix != "" {
		keys, err := newParamStore(ctx)
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		cfg, err = config.ResolveSecrets(ctx, cfg, keys)
		if err != nil {
			slog.Error("failed to resolve API keys", "err", err)
			os.Exit(1)
		}
	}

	// ---- Clients ----
	openaiClient := openai.NewClient(cfg.OpenAIKey, openai.WithModel(cfg.OpenAIModel))
	claudeClient := claude.NewClient(cfg.ClaudeKey, claude.WithModel(cfg.ClaudeModel))

	// ---- Use cases ----
	chatService, err := usecase.NewChatService(cfg, openaiClient, claudeClient, responder.New())
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	catalogService, err := usecase.NewCatalogService(cfg, openaiClient, claudeClient)
	if err != nil {
		slog.Error("failed to create catalog service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(chatService, catalogService, handler.WithDevelopment(cfg.Development()))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"default_provider", cfg.DefaultProvider,
		"openai_configured", cfg.HasKey("openai"),
		"claude_configured", cfg.HasKey("claude"),
		"environment", cfg.Environment,
	)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(h.Handle)
		return
	}
	if err := serve(cfg, h); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	if cfg.Development() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return
	}
	gin.SetMode(gin.ReleaseMode)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

func newParamStore(ctx context.Context) (*paramstore.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return paramstore.New(awsssm.NewFromConfig(awsCfg))
}

func serve(cfg config.Config, h *handler.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// chat calls may take up to two 30s provider attempts
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("AI chat gateway listening",
			"addr", srv.Addr,
			"health", fmt.Sprintf("http://localhost:%d/api/health", cfg.Port),
			"chat", fmt.Sprintf("http://localhost:%d/api/chat", cfg.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
