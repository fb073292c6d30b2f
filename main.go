package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := pflag.String("config", "", "Path to config file")
	urlFlag := pflag.String("onebot-url", "", "Override OneBot websocket URL")
	dataDirFlag := pflag.String("data-dir", "", "Override data directory")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfgPath := *configPath
	if cfgPath == "" {
		home, _ := os.UserHomeDir()
		cfgPath = filepath.Join(home, ".nekocard", "agent.yaml")
	}

	config, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		config.OneBot.URL = *urlFlag
	}
	if *dataDirFlag != "" {
		config.DataDir = *dataDirFlag
	}

	log, err := newLogger(config.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("agent stopped", zap.Error(err))
	}
	log.Info("shut down")
}

func run(ctx context.Context, config *Config, log *zap.Logger) error {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	clk := clock.New()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	st := newStats(registry)

	store, closeStore, err := openStore(ctx, config, log.Named("store"))
	if err != nil {
		return err
	}
	defer closeStore()

	var probe NetworkProbe = newStaticProbe()
	if config.Probe.Target != "" {
		probe = newTCPProbe(config.Probe.Target, config.Probe.Count, config.Probe.Timeout)
	}

	recorder := newRecorder(newPSSampler(config.CPUSampleInterval), probe, store, clk, st, log.Named("recorder"))

	client := newOneBotClient(onebotOptions{
		URL:               config.OneBot.URL,
		AccessToken:       config.OneBot.AccessToken,
		ActionTimeout:     config.OneBot.ActionTimeout,
		ActionRate:        config.OneBot.ActionRate,
		ReconnectInterval: config.OneBot.ReconnectInterval,
	}, clk, log.Named("onebot"))

	updater := newCardUpdater(updaterOptions{
		TemplatePath:   config.TemplatePath(),
		ThrottleWindow: config.ThrottleWindow,
		MaxRetries:     config.MaxRetries,
		BackoffBase:    config.BackoffBase,
	}, recorder, store, client, clk, st, log.Named("updater"))

	dispatcher := newDispatcher(ctx, updater, config.Triggers, log.Named("dispatcher"))

	if config.HTTP.Listen != "" {
		listener, err := net.Listen("tcp", config.HTTP.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", config.HTTP.Listen, err)
		}
		srv := &http.Server{
			Handler:           newServer(config.HTTP.Token, updater, registry, log.Named("http")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http serve", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("status server listening", zap.String("addr", listener.Addr().String()))
		if config.HTTP.Token == "" {
			log.Warn("no status server token configured")
		}
	}

	log.Info("nekocard agent starting",
		zap.String("version", version),
		zap.String("onebot", config.OneBot.URL),
		zap.String("data_dir", config.DataDir),
		zap.String("store", config.Store.Backend))

	err = client.Run(ctx, dispatcher.HandleEvent)
	dispatcher.Wait()
	return err
}

func openStore(ctx context.Context, config *Config, log *zap.Logger) (SnapshotStore, func(), error) {
	if config.Store.Backend != "redis" {
		return newFileStore(config.SnapshotPath(), log), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Store.RedisAddr,
		Password: config.Store.RedisPassword,
		DB:       config.Store.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Save failures are already tolerated per cycle; keep going.
		log.Warn("redis not reachable", zap.String("addr", config.Store.RedisAddr), zap.Error(err))
	}
	return newRedisStore(rdb, config.Store.RedisKey), func() { rdb.Close() }, nil
}
