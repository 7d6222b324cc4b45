// Package main is the Mitsukeru CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mitsukeru/internal/cli"
	"github.com/hyperjump/mitsukeru/internal/config"
	"github.com/hyperjump/mitsukeru/internal/index"
	"github.com/hyperjump/mitsukeru/internal/models"
	"github.com/hyperjump/mitsukeru/internal/searchable"
	"github.com/hyperjump/mitsukeru/internal/server"
	"github.com/hyperjump/mitsukeru/internal/storage"
	"github.com/hyperjump/mitsukeru/internal/watcher"
	"github.com/hyperjump/mitsukeru/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/mitsukeru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("mitsukeru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// components bundles everything the server command wires together.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	idx      *index.BleveIndex
	registry *searchable.Registry
	srv      *server.Server
	closeDB  func() error
}

// initializeComponents opens the database and index, registers searchable
// models, and installs the index-sync plugin.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	db, err := storage.Open(cfg.Storage.DatabasePath, cfg.Debug)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(db, &models.Post{}); err != nil {
		_ = storage.Close(db)
		return nil, err
	}

	idx, err := index.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = storage.Close(db)
		return nil, err
	}

	if err := db.Use(searchable.NewPlugin(idx, logger)); err != nil {
		_ = idx.Close()
		_ = storage.Close(db)
		return nil, err
	}

	registry := searchable.NewRegistry(db, idx)
	registry.Register(&models.Post{})

	srv := server.NewServer(db, idx, registry, cfg, logger)
	return &components{
		cfg:      cfg,
		logger:   logger,
		idx:      idx,
		registry: registry,
		srv:      srv,
		closeDB:  func() error { return storage.Close(db) },
	}, nil
}

func (c *components) Close() {
	if err := c.idx.Close(); err != nil {
		c.logger.Warn("index close failed", zap.Error(err))
	}
	if err := c.closeDB(); err != nil {
		c.logger.Warn("database close failed", zap.Error(err))
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	cfg.Debug = debugMode
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comp, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comp.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.New(cfg.Storage.DatabasePath, func() {
			if err := comp.registry.Reindex(context.Background()); err != nil {
				logger.Warn("reindex after database change failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := comp.srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = comp.srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	host := fs.String("host", "localhost", "server host")
	port := fs.Int("port", 8080, "server port")
	page := fs.Int("page", 1, "result page (1-indexed)")
	perPage := fs.Int("per-page", 20, "results per page")
	table := fs.String("table", "posts", "table to search")
	jsonOut := fs.Bool("json", false, "output JSON instead of text")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		fmt.Println("Usage: mitsukeru search [flags] <query>")
		os.Exit(1)
	}
	query := fs.Arg(0)
	for _, arg := range fs.Args()[1:] {
		query += " " + arg
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("table", *table)
	params.Set("page", strconv.Itoa(*page))
	params.Set("per_page", strconv.Itoa(*perPage))
	u := fmt.Sprintf("http://%s:%d/api/v1/search?%s", *host, *port, params.Encode())

	body, err := httpGet(u)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	var response models.SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	if err := cli.WriteSearchResults(os.Stdout, &response, format); err != nil {
		fmt.Printf("Failed to write results: %v\n", err)
		os.Exit(1)
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	host := fs.String("host", "localhost", "server host")
	port := fs.Int("port", 8080, "server port")
	_ = fs.Parse(os.Args[2:])

	u := fmt.Sprintf("http://%s:%d/api/v1/reindex", *host, *port)
	resp, err := http.Post(u, "application/json", nil)
	if err != nil {
		fmt.Printf("Reindex failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Reindex failed: %s\n", string(body))
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	host := fs.String("host", "localhost", "server host")
	port := fs.Int("port", 8080, "server port")
	_ = fs.Parse(os.Args[2:])

	u := fmt.Sprintf("http://%s:%d/api/v1/status", *host, *port)
	body, err := httpGet(u)
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func httpGet(u string) ([]byte, error) {
	resp, err := http.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func printUsage() {
	fmt.Println(`Usage: mitsukeru <command> [flags]

Commands:
  server    Start the HTTP server
  search    Search indexed records (talks to a running server)
  reindex   Rebuild the search index from the database
  status    Show row and index counts per table
  version   Print version
  help      Show this help`)
}
