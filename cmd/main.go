package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"ridesight/dataset"
	"ridesight/db"
	qhttp "ridesight/http"
	"ridesight/logger"
	"ridesight/ml"
	"ridesight/queries"
)

type Config struct {
	Http    qhttp.ServerConfig `yaml:"http"`
	Log     logger.Config      `yaml:"log"`
	Dataset struct {
		Path        string `yaml:"path"`
		DropInvalid bool   `yaml:"drop_invalid"`
	} `yaml:"dataset"`
	Database struct {
		db.Config `yaml:",inline"`
		Seed      bool `yaml:"seed"`
	} `yaml:"database"`
	Queries struct {
		Dir   string `yaml:"dir"`
		Watch bool   `yaml:"watch"`
	} `yaml:"queries"`
	Model struct {
		ClassifierPath   string `yaml:"classifier_path"`
		ScalerPath       string `yaml:"scaler_path"`
		StrictCategories bool   `yaml:"strict_categories"`
	} `yaml:"model"`
}

func defaultConfig() *Config {
	c := &Config{Http: qhttp.DefaultServerConfig()}
	c.Log.Level = "info"
	c.Dataset.Path = "data/ola_data_enhanced.csv"
	c.Database.Driver = "sqlite3"
	c.Database.DSN = "data/ola_analytics.db"
	c.Database.EnableWAL = true
	c.Database.Seed = true
	c.Queries.Dir = "sql_queries"
	c.Queries.Watch = true
	c.Model.ClassifierPath = "models/cancellation_model.json"
	c.Model.ScalerPath = "models/scaler.json"
	return c
}

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join("..", "config.yaml")
	}

	// 1. Load config
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.resolvePaths(filepath.Dir(configPath))

	// 2. Logger
	zlog, err := logger.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Wire services
	if err := initializeServices(ctx, config, zlog); err != nil {
		zlog.Fatal("failed to initialize services", zap.Error(err))
	}
	defer db.Close()

	// 4. Start HTTP server
	server := qhttp.NewServer(config.Http, zlog)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			zlog.Error("HTTP server failed", zap.Error(err))
		}
	}
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		zlog.Warn("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return config, nil
}

// resolvePaths makes relative file paths relative to the config file.
func (c *Config) resolvePaths(base string) {
	if base == "." {
		return
	}
	for _, p := range []*string{&c.Dataset.Path, &c.Queries.Dir, &c.Model.ClassifierPath, &c.Model.ScalerPath, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	if c.Database.Driver == "sqlite3" && c.Database.DSN != "" && !filepath.IsAbs(c.Database.DSN) {
		c.Database.DSN = filepath.Join(base, c.Database.DSN)
	}
}

func initializeServices(ctx context.Context, config *Config, zlog *zap.Logger) error {
	cleaner := dataset.NewDataCleaner()
	cleaner.DropInvalid = config.Dataset.DropInvalid
	loader := dataset.NewLoader(cleaner, zlog.Named("dataset"))
	qhttp.SetDatasetSource(func() (*dataset.Table, error) {
		return loader.Load(config.Dataset.Path)
	})

	// 数据库不可用时仅查询页面返回503
	if err := openDatabase(config.Database.Config); err != nil {
		zlog.Warn("database unavailable, queries disabled", zap.Error(err))
	} else {
		zlog.Info("database initialized", zap.String("driver", config.Database.Driver))
		if config.Database.Seed {
			seedDatabase(ctx, loader, config.Dataset.Path, zlog)
		}
	}

	catalog := queries.NewCatalog(config.Queries.Dir, zlog.Named("queries"))
	qhttp.SetCatalog(catalog)
	if config.Queries.Watch {
		go func() {
			if err := catalog.Watch(ctx); err != nil {
				zlog.Warn("query watcher stopped", zap.Error(err))
			}
		}()
	}

	assets := &ml.AssetLoader{
		ClassifierPath: config.Model.ClassifierPath,
		ScalerPath:     config.Model.ScalerPath,
	}
	if _, err := assets.Load(); err != nil {
		// 模型缺失时预测接口返回503，其余功能照常
		zlog.Warn("model assets unavailable", zap.Error(err))
	}
	qhttp.SetAssetSource(assets.Load)
	qhttp.SetStrictCategories(config.Model.StrictCategories)
	return nil
}

// openDatabase creates the parent directory of a sqlite file before opening.
func openDatabase(cfg db.Config) error {
	if (cfg.Driver == "" || cfg.Driver == "sqlite3") && cfg.DSN != "" && !strings.HasPrefix(cfg.DSN, "file:") {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}
		}
	}
	return db.InitDB(cfg)
}

func seedDatabase(ctx context.Context, loader *dataset.Loader, path string, zlog *zap.Logger) {
	table, err := loader.Load(path)
	if err != nil {
		zlog.Warn("skip seeding, dataset unavailable", zap.Error(err))
		return
	}
	n, err := db.SeedRides(ctx, table.Rides)
	if err != nil {
		zlog.Warn("seeding rides failed", zap.Error(err))
		return
	}
	zlog.Info("rides table ready", zap.Int("inserted", n))
}
