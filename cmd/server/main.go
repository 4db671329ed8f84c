/*
Package main is the entry point for the chat server.

It loads configuration, initializes the global logger, binds the chat socket, starts the
accept loop and the optional operator HTTP surface, and shuts both down gracefully on
SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Quote121/threaded-sockets/internal/app/chat"
	"github.com/Quote121/threaded-sockets/internal/configs"
	"github.com/Quote121/threaded-sockets/internal/handler"
	"github.com/Quote121/threaded-sockets/internal/pkg/auth/jwt"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		port       string
		backlog    int
		maxUsers   int
		adminPort  int
		issueToken bool
		tokenName  string
		tokenTTL   time.Duration
	)

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML configuration file (default $CONFIG_FILE)")
	flagSet.StringVarP(&port, "port", "p", "", "chat port (number or service name)")
	flagSet.IntVar(&backlog, "backlog", 0, "maximum number of pending connections")
	flagSet.IntVar(&maxUsers, "max-users", 0, "maximum number of registered users (0 = unlimited)")
	flagSet.IntVar(&adminPort, "admin-port", 0, "operator HTTP port (0 = disabled)")
	flagSet.BoolVar(&issueToken, "issue-token", false, "print an operator token and exit")
	flagSet.StringVar(&tokenName, "token-name", "operator", "operator name embedded in an issued token")
	flagSet.DurationVar(&tokenTTL, "token-ttl", jwt.OperatorTokenExpiration, "lifetime of an issued token")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	loadConfig := configs.LoadConfig
	if flagSet.Changed("config") {
		loadConfig = func() (*configs.AppConfig, error) { return configs.Load(configPath) }
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags win over the file and the environment.
	if flagSet.Changed("port") {
		cfg.Port = port
	}
	if flagSet.Changed("backlog") {
		cfg.Backlog = backlog
	}
	if flagSet.Changed("max-users") {
		cfg.MaxUsers = maxUsers
	}
	if flagSet.Changed("admin-port") {
		cfg.AdminPort = adminPort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if issueToken {
		token, err := jwt.GenerateToken(&jwt.Payload{Name: tokenName, Role: jwt.RoleOperator}, cfg.JWTSecret, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Int("backlog", cfg.Backlog).
		Int("max_users", cfg.MaxUsers).
		Int("admin_port", cfg.AdminPort).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := chat.NewServer(cfg)

	if err := srv.Create(cfg.Port); err != nil {
		return fmt.Errorf("failed to bind chat port: %w", err)
	}
	if err := srv.Listen(cfg.Backlog); err != nil {
		return fmt.Errorf("failed to listen on chat port: %w", err)
	}

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- srv.AcceptLoop(ctx)
	}()

	var admin *http.Server
	if cfg.AdminPort > 0 {
		admin = &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.AdminPort),
			Handler:      handler.Router(&handler.AppDeps{Server: srv, Config: cfg}),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			logx.Info("Operator surface starting.", "addr", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Error(err, "Operator surface failed")
				stop()
			}
		}()
	}

	// Wait for interrupt signal or a fatal accept error.
	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case err := <-acceptErr:
		if err != nil {
			logx.Error(err, "Accept loop failed. Starting graceful shutdown...")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logx.Error(err, "Operator surface forced to shutdown")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("chat server forced to shutdown: %w", err)
	}

	logx.Info("Server gracefully stopped.")
	return nil
}
