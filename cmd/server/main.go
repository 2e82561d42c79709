package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/smartcampus/chat-server/internal/api"
	"github.com/smartcampus/chat-server/internal/attachments"
	"github.com/smartcampus/chat-server/internal/auth"
	"github.com/smartcampus/chat-server/internal/config"
	"github.com/smartcampus/chat-server/internal/database"
	"github.com/smartcampus/chat-server/internal/presence"
	"github.com/smartcampus/chat-server/internal/server"
	"github.com/smartcampus/chat-server/internal/stats"
)

const defaultSigningKey = "Zm9yLWxvY2FsLWRldmVsb3BtZW50LW9ubHk="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	fileServiceURL string
	runMigrations  bool
	allowedOrigins stringSliceFlag
)

func main() {
	// .env is optional, flags and process env win
	_ = godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("CHAT_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("CHAT_DSN",
		"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"),
		"database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("CHAT_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.StringVar(&fileServiceURL, "file-service-url", envOr("CHAT_FILE_SERVICE_URL", "http://localhost:8080"),
		"base URL of the file service used to resolve attachments")
	flag.BoolVar(&runMigrations, "migrate", false, "run database migrations on startup")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[chat-server] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if runMigrations {
		logger.Println("running database migrations...")
		if err := dbConn.Migrate("file://migrations"); err != nil {
			logger.Fatal("migrate:", err)
		}
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	registry := presence.NewRegistry()
	resolver := attachments.NewHTTPResolver(fileServiceURL)

	chatServer, err := server.NewChatServer(logger, dbConn, registry, resolver, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	verifier := auth.NewJwtVerifier(cfg.SigningKey)

	srv := api.NewChatApp(mux, logger, chatServer, dbConn, registry, verifier, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
