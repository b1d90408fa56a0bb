package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"notifyconsole/api/server"
	"notifyconsole/internal/catalog"
	"notifyconsole/internal/config"
	"notifyconsole/internal/console"
	"notifyconsole/internal/database"
	"notifyconsole/internal/elasticsearch"
	"notifyconsole/internal/logger"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

var (
	configFile = flag.String("config", "etc/config.yaml", "Path to configuration file")
	version    = "1.0.0"
)

func main() {
	flag.Parse()

	var cfg *config.Config
	configPath := *configFile

	// file first, environment variables as fallback
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			fmt.Printf("Failed to load config from file: %v\n", err)
			fmt.Println("Falling back to environment variables...")
			cfg = config.Load()
		}
	} else {
		fmt.Println("Config file not found, loading from environment variables...")
		cfg = config.Load()
		configPath = ""
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting notification console",
		zap.String("version", version),
		zap.String("config_file", configPath),
	)

	opts := []console.Option{console.WithLogger(logger.Named("console"))}

	var persist rule.Persistence
	var history server.ChangeHistory
	if cfg.Database.Driver == "memory" {
		persist = rule.NewMemoryPersistence()
		logger.Warn("Using in-memory rule storage, changes are lost on restart")
	} else {
		db := openDatabase(cfg.Database)
		defer database.Close(db)

		persist = database.NewRuleRepository(db)
		changeLog := database.NewChangeLog(db)
		history = changeLog
		opts = append(opts,
			console.WithRecipientStore(database.NewRecipientRepository(db)),
			console.WithRecorder("database", changeLog.Record),
		)
	}

	esClient, err := elasticsearch.NewClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
	}
	if esClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := esClient.CreateIndexTemplate(ctx); err != nil {
			logger.Warn("Failed to create index template", zap.Error(err))
		}
		cancel()
		opts = append(opts, console.WithRecorder("elasticsearch", esClient.RecordChange))
	} else {
		logger.Info("Elasticsearch is disabled")
	}

	if dir := cfg.Logger.AuditDir; dir != "" {
		opts = append(opts, console.WithRecorder("journal", func(_ context.Context, c session.Change) error {
			entry := &logger.ChangeLogEntry{
				Timestamp: c.At,
				Kind:      string(c.Kind),
				Category:  string(c.Category),
				RuleID:    c.RuleID,
				Created:   c.Created,
			}
			if c.Rule != nil {
				entry.RuleName = c.Rule.Name
			}
			return logger.WriteChangeLog(dir, entry)
		}))
	}

	if cfg.Catalog.Path != "" {
		opts = append(opts, console.WithCatalog(catalog.NewFileSource(cfg.Catalog.Path)))
	}

	svc := console.New(persist, opts...)
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Bootstrap(bootCtx); err != nil {
		cancel()
		logger.Fatal("Failed to load rules", zap.Error(err))
	}
	cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	go func() {
		httpServer := server.NewServer(svc, esClient, history, configPath, cfg)
		logger.Info("Starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.Run(httpAddr); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("Received signal, shutting down...", zap.String("signal", sig.String()))
	logger.Info("Notification console stopped")
}

func openDatabase(cfg config.DatabaseConfig) *gorm.DB {
	db, err := database.Open(database.Config{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	logger.Info("Database initialized",
		zap.String("driver", cfg.Driver),
		zap.String("database", cfg.DBName),
	)
	return db
}
