package main

import (
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	clientDir := flag.String("client", "", "Path to client directory (default: ../client)")
	configPath := flag.String("config", "", "YAML config file (default: built-in settings)")
	dbPath := flag.String("db", "arena.db", "SQLite database path, empty to disable persistence")
	replayDir := flag.String("replay-dir", "", "Directory for per-session replay logs, empty to disable")
	oracleURL := flag.String("oracle-url", "", "Override the oracle generate endpoint")
	oracleModel := flag.String("oracle-model", "", "Override the oracle model name")
	noOracle := flag.Bool("no-oracle", false, "Run without an oracle; every decision falls back to random")
	requireAuth := flag.Bool("require-auth", false, "Only authenticated operators may send control commands")
	flag.Parse()

	if *clientDir == "" {
		exe, _ := os.Executable()
		*clientDir = filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(*clientDir); os.IsNotExist(err) {
			*clientDir = "../client"
		}
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("config: %v", err)
		}
		if err == nil {
			cfg = loaded
		} else {
			log.Printf("config %s not found, using defaults", *configPath)
		}
	}
	if *oracleURL != "" {
		cfg.Oracle.URL = *oracleURL
	}
	if *oracleModel != "" {
		cfg.Oracle.Model = *oracleModel
	}

	var oracle Oracle
	if !*noOracle && cfg.Oracle.URL != "" {
		oracle = NewOllamaOracle(cfg.Oracle)
		log.Printf("Oracle: %s (%s)", cfg.Oracle.URL, cfg.Oracle.Model)
	} else {
		log.Printf("Oracle disabled, decisions fall back to random actions")
	}

	var db *DB
	var auth *Auth
	var analytics *Analytics
	var telemetry EventSink
	if *dbPath != "" {
		var err error
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		auth = NewAuth(db)
		analytics = NewAnalytics(db)
		telemetry = analytics
	} else if *requireAuth {
		log.Fatalf("-require-auth needs a database")
	}

	sessions := NewSessionManager(cfg, oracle, telemetry, *replayDir)
	hub := NewHub(sessions, db, auth, *requireAuth)
	go hub.Run()

	mux := SetupRoutes(hub, *clientDir, API{
		Oracle:        oracle,
		OracleTimeout: oracleTimeout(cfg.Oracle),
		Analytics:     analytics,
		ReplayDir:     *replayDir,
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		log.Printf("Serving client files from %s", *clientDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	sessions.CloseAll()
	if analytics != nil {
		analytics.Stop()
	}
}
