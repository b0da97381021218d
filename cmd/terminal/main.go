package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/okx_spot_terminal/internal/domain"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/exchange"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/logger"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/storage"
	"github.com/vitos/okx_spot_terminal/internal/usecase"
	"github.com/vitos/okx_spot_terminal/internal/web"
)

type Config struct {
	Exchange struct {
		RESTBase   string `yaml:"rest_base"`
		WSPublic   string `yaml:"ws_public"`
		WSPrivate  string `yaml:"ws_private"`
		APIKey     string `yaml:"api_key"`
		SecretKey  string `yaml:"secret_key"`
		Passphrase string `yaml:"passphrase"`
		Demo       bool   `yaml:"demo"`
		Reconnect  bool   `yaml:"reconnect"`
	} `yaml:"exchange"`
	Watch struct {
		InstID string `yaml:"inst_id"`
		Bar    string `yaml:"bar"`
	} `yaml:"watch"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// loadConfig reads YAML then applies environment overrides; credentials are
// usually supplied via OKX_* env vars rather than the file. A missing file
// is fine: defaults plus environment.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	cfg.Exchange.Demo = true
	cfg.Exchange.Reconnect = true
	cfg.Watch.InstID = "BTC-USDT"
	cfg.Watch.Bar = "1m"
	cfg.Storage.Path = "orders.db"
	cfg.Logging.Level = "info"
	cfg.Server.Port = 8080

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if v := os.Getenv("OKX_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("OKX_SECRET_KEY"); v != "" {
		cfg.Exchange.SecretKey = v
	}
	if v := os.Getenv("OKX_PASSPHRASE"); v != "" {
		cfg.Exchange.Passphrase = v
	}
	if v := os.Getenv("OKX_DEMO"); v != "" {
		cfg.Exchange.Demo = v == "1" || v == "true" || v == "yes"
	}
	return &cfg, nil
}

func main() {
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	exCfg := exchange.Config{
		RESTBase:     cfg.Exchange.RESTBase,
		WSPublicURL:  cfg.Exchange.WSPublic,
		WSPrivateURL: cfg.Exchange.WSPrivate,
		APIKey:       cfg.Exchange.APIKey,
		SecretKey:    cfg.Exchange.SecretKey,
		Passphrase:   cfg.Exchange.Passphrase,
		Demo:         cfg.Exchange.Demo,
	}
	adapter := exchange.NewOKXAdapter(exCfg, log)

	var repo domain.OrderRepository
	if cfg.Storage.Path != "" {
		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			log.Fatal("Failed to init sqlite", zap.Error(err))
		}
		defer store.Close()
		repo = store
	}

	public := exchange.NewOKXStream(domain.ScopePublic, exCfg, cfg.Exchange.Reconnect, adapter.Signer(), log)

	var private domain.Stream
	if adapter.Signer().Ready() {
		private = exchange.NewOKXStream(domain.ScopePrivate, exCfg, cfg.Exchange.Reconnect, adapter.Signer(), log)
	} else {
		log.Warn("no API credentials, trading disabled")
	}

	svc := usecase.NewTerminalService(adapter, public, private, repo, log)
	if err := svc.Start(); err != nil {
		log.Fatal("Failed to start streams", zap.Error(err))
	}
	defer svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Watch(ctx, cfg.Watch.InstID, domain.Bar(cfg.Watch.Bar)); err != nil {
		log.Error("Initial watch failed", zap.Error(err))
	}
	if private != nil {
		if err := svc.RefreshOrders(ctx); err != nil {
			log.Error("Open orders refresh failed", zap.Error(err))
		}
	}
	cancel()

	server := web.NewServer(cfg.Server.Port, svc, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
