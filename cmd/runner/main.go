package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"hft-sim-go/config"
	"hft-sim-go/feed"
	"hft-sim-go/infrastructure/logger"
	"hft-sim-go/monitor"
	"hft-sim-go/report"
	"hft-sim-go/sim"
)

// 常驻模拟服务：配置文件驱动，暴露 Prometheus 指标与 websocket 行情，
// 支持配置热更新与 systemd 就绪/看门狗通知，SIGINT/SIGTERM 优雅退出。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径，留空使用默认配置")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadWithEnvOverrides(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	engine := sim.New(cfg, log.Logger)

	var mon *monitor.Monitor
	if cfg.Metrics.Enabled {
		mon = monitor.New(monitor.DefaultConfig())
		engine.SetMonitor(mon)
	}

	pub := feed.NewPublisher()
	engine.SetSink(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if mon != nil {
		srv := mon.Serve(cfg.Metrics.Addr)
		defer srv.Shutdown(context.Background())
		log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	if cfg.Feed.Enabled {
		feedSrv := feed.NewServer(engine, pub, log.Logger.Named("feed"))
		srv := feedSrv.Serve(cfg.Feed.Addr)
		defer srv.Shutdown(context.Background())
		log.Info("feed server listening", zap.String("addr", cfg.Feed.Addr))
	}

	// 配置热更新：文件变化时整体替换做市参数
	if *cfgPath != "" {
		reloader, err := config.NewReloader(*cfgPath, config.DefaultReloadConfig())
		if err != nil {
			log.Warn("hot reload unavailable", zap.Error(err))
		} else {
			reloader.SetReloadHandler(func(newCfg config.AppConfig) error {
				engine.UpdateMakerConfig(newCfg.Maker)
				return nil
			})
			reloader.SetErrorHandler(func(err error) {
				log.Warn("config reload failed", zap.Error(err))
			})
			if err := reloader.Start(ctx); err != nil {
				log.Warn("hot reload start failed", zap.Error(err))
			} else {
				defer reloader.Stop()
			}
		}
	}

	if err := engine.Start(); err != nil {
		log.Error("engine start failed", zap.Error(err))
		os.Exit(1)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()

	select {
	case sig := <-quit:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case <-done:
		log.Info("simulation finished")
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	engine.Stop()

	fmt.Print(report.Summary(engine.Status(), engine.Tracker(), cfg.Maker.VolLookback))
}

// watchdogLoop 按 systemd 看门狗周期的一半发送心跳。
func watchdogLoop(ctx context.Context, log *logger.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	log.Info("systemd watchdog enabled", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
