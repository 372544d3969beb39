package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/andrewkuryan/brownie/api"
	"github.com/andrewkuryan/brownie/notify"
	"github.com/andrewkuryan/brownie/signature"
	"github.com/andrewkuryan/brownie/srp"
	"github.com/andrewkuryan/brownie/storage"
	bboltstorage "github.com/andrewkuryan/brownie/storage/bbolt"
	"github.com/andrewkuryan/brownie/storage/memory"
	"github.com/andrewkuryan/brownie/store"
	"github.com/andrewkuryan/brownie/web"
)

const sweepInterval = time.Minute

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(v)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg, logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	f := serverCmd.Flags()
	f.IntP(keyPort, "p", 8080, "Port to listen on")
	f.String(keyStorage, storageMemory, "Storage backend: memory or bbolt")
	f.String(keyDataDir, "./data", "Directory for the bbolt database")
	f.String(keyWebRoot, "", "Directory with the web client build served outside /api")
	f.Duration(keyTempSessionTTL, api.DefaultTempSessionTTL, "How long a login handshake stays valid")
	f.StringSlice(keyAllowedOrigins, nil, "Origins allowed by CORS (default any)")
	f.String(keyLogLevel, "info", "Log level: debug, info, warn or error")
	f.String(keyTLSCert, "", "Path to TLS certificate file")
	f.String(keyTLSKey, "", "Path to TLS key file")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
}

// openRepository returns the configured storage backend and a function that
// releases it.
func openRepository(cfg serverConfig) (storage.Repository, func() error, error) {
	if cfg.Storage != storageBBolt {
		return memory.NewRepository(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := bboltstorage.NewRepositoryFromFile(filepath.Join(cfg.DataDir, "brownie.db"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return repo, repo.Close, nil
}

// newSigner loads the response signing key. Without one an ephemeral key
// is generated; clients must then be given its public key on every start.
func newSigner(cfg serverConfig, logger *slog.Logger) (*signature.Signer, error) {
	privateKey := cfg.PrivateKey
	if privateKey == "" {
		pub, priv, err := signature.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		logger.Warn("no ecdsa.private-key configured; using an ephemeral signing key", "public_key", pub)
		privateKey = priv
	}
	return signature.NewSigner(privateKey)
}

func newDispatcher(cfg serverConfig, logger *slog.Logger) (*notify.Dispatcher, error) {
	var email, telegram notify.Notifier
	if cfg.SMTP.Enabled() {
		sender, err := notify.NewEmailSender(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		email = sender
	}
	if cfg.TelegramToken != "" {
		bot, err := notify.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		telegram = bot
	}
	return notify.NewDispatcher(email, telegram, logger), nil
}

func newRouter(a *api.API, webRoot string) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Mount("/api", a.Router())

	if webRoot != "" {
		webHandler, err := web.Handler(os.DirFS(webRoot))
		if err != nil {
			return nil, err
		}
		r.Handle("/*", webHandler)
	}
	return r, nil
}

func runServer(ctx context.Context, cfg serverConfig, logger *slog.Logger, out io.Writer) error {
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	st, err := store.New(repo, cfg.DataKey, store.WithLogger(logger))
	if err != nil {
		return err
	}
	engine, err := srp.NewFromGroup(cfg.SRP)
	if err != nil {
		return err
	}
	signer, err := newSigner(cfg, logger)
	if err != nil {
		return err
	}
	defer signer.Destroy()

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer dispatcher.Wait()

	a := api.New(st, engine, signer, dispatcher,
		api.WithLogger(logger),
		api.WithTempSessionTTL(cfg.TempSessionTTL),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
		api.WithAlertFunc(func(e api.AlertEvent) {
			logger.Warn("security alert", "type", e.Type, "message", e.Message, "count", e.Count)
		}),
	)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.SweepTempSessions(sweepCtx, sweepInterval)

	handler, err := newRouter(a, cfg.WebRoot)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCert != "" {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	printBanner(out)
	fmt.Fprintf(out, "Starting server on port %d (storage: %s)...\n", cfg.Port, cfg.Storage)

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}
