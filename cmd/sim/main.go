package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hft-sim-go/config"
	"hft-sim-go/infrastructure/logger"
	"hft-sim-go/report"
	"hft-sim-go/sim"
)

// 一次性本地模拟：GBM 合成行情驱动做市引擎，跑完指定时长后
// 打印报告，可选导出成交与盈亏历史 CSV。
func main() {
	symbol := flag.String("symbol", "SIM", "trading symbol")
	price := flag.Float64("price", 100, "initial price")
	drift := flag.Float64("drift", 0.05, "annualized drift")
	vol := flag.Float64("vol", 0.20, "annualized volatility")
	seed := flag.Int64("seed", 0, "rng seed (0 = random)")
	duration := flag.Duration("duration", 10*time.Second, "simulation duration")
	tickInterval := flag.Duration("tick", 10*time.Millisecond, "tick interval")
	takerRate := flag.Float64("takerRate", 0.3, "probability of taker flow per tick")
	spreadBps := flag.Float64("spreadBps", 10, "base spread in bps")
	orderSize := flag.Float64("orderSize", 100, "quote size per side")
	tradesCSV := flag.String("tradesCsv", "", "write trade history CSV to this path")
	pnlCSV := flag.String("pnlCsv", "", "write pnl snapshot CSV to this path")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	cfg := config.Default()
	cfg.Symbol = *symbol
	cfg.Market.InitialPrice = *price
	cfg.Market.Drift = *drift
	cfg.Market.Volatility = *vol
	cfg.Market.Seed = *seed
	cfg.Sim.DurationMs = int(duration.Milliseconds())
	cfg.Sim.TickIntervalMs = int(tickInterval.Milliseconds())
	cfg.Sim.TakerRate = *takerRate
	cfg.Maker.BaseSpreadBPS = *spreadBps
	cfg.Maker.OrderSize = *orderSize

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid parameters: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.Config{Level: "warn", Format: "console"}
	if *verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	engine := sim.New(cfg, log.Logger)
	if err := engine.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	engine.Wait()

	tracker := engine.Tracker()
	fmt.Print(report.Summary(engine.Status(), tracker, cfg.Maker.VolLookback))

	if *tradesCSV != "" {
		if err := report.SaveTradesCSV(*tradesCSV, tracker.Trades()); err != nil {
			fmt.Fprintf(os.Stderr, "write trades csv: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\ntrades written to %s\n", *tradesCSV)
	}
	if *pnlCSV != "" {
		if err := report.SaveSnapshotsCSV(*pnlCSV, tracker.Snapshots()); err != nil {
			fmt.Fprintf(os.Stderr, "write pnl csv: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("pnl snapshots written to %s\n", *pnlCSV)
	}
}
