package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"hft-sim-go/maker"
	"hft-sim-go/market"
)

// AppConfig 模拟器主配置。
type AppConfig struct {
	Env     string        `yaml:"env"`
	Symbol  string        `yaml:"symbol"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feed    FeedConfig    `yaml:"feed"`
	Market  MarketConfig  `yaml:"market"`
	Maker   maker.Config  `yaml:"maker"`
	Sim     SimConfig     `yaml:"sim"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug/info/warn/error
	File  string `yaml:"file"`  // 为空则只输出到 stdout
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MarketConfig 价格生成参数（年化口径）。
type MarketConfig struct {
	InitialPrice  float64 `yaml:"initialPrice"`
	TickSize      float64 `yaml:"tickSize"`
	Drift         float64 `yaml:"drift"`
	Volatility    float64 `yaml:"volatility"`
	TimeStep      float64 `yaml:"timeStep"`
	HistoryWindow int     `yaml:"historyWindow"`
	Seed          int64   `yaml:"seed"` // 0 表示不固定
}

// SimConfig 驱动层参数。时长用毫秒整数表示，yaml.v3 不解析 "10ms" 这类字符串。
type SimConfig struct {
	DurationMs     int     `yaml:"durationMs"`     // 总运行时长（毫秒），0 表示不限
	TickIntervalMs int     `yaml:"tickIntervalMs"` // tick 周期（毫秒）
	TakerRate      float64 `yaml:"takerRate"`      // 每 tick 出现吃单流的概率 [0,1]
	TakerMaxQty    float64 `yaml:"takerMaxQty"`    // 单笔吃单数量上限
	BookDepth      int     `yaml:"bookDepth"`      // 行情快照深度
}

// Duration 总运行时长。
func (s SimConfig) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// TickInterval tick 周期。
func (s SimConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// Default 返回各组件默认值拼装的完整配置。
func Default() AppConfig {
	return AppConfig{
		Env:    "dev",
		Symbol: "SIM",
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Feed: FeedConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Market: MarketConfig{
			InitialPrice:  100.0,
			TickSize:      0.01,
			Drift:         0.05,
			Volatility:    0.20,
			TimeStep:      1.0 / 252.0,
			HistoryWindow: 100,
		},
		Maker: maker.DefaultConfig(),
		Sim: SimConfig{
			DurationMs:     60_000,
			TickIntervalMs: 10,
			TakerRate:      0.3,
			TakerMaxQty:    50,
			BookDepth:      10,
		},
	}
}

// ToGeneratorConfig 转为 market 包的生成器配置。
func (m MarketConfig) ToGeneratorConfig() market.GeneratorConfig {
	return market.GeneratorConfig{
		InitialPrice:  m.InitialPrice,
		Drift:         m.Drift,
		Volatility:    m.Volatility,
		TimeStep:      m.TimeStep,
		HistoryWindow: m.HistoryWindow,
		Seed:          m.Seed,
	}
}

// Load reads YAML config from path and applies basic validation.
// 文件中未出现的字段保持 Default() 的取值。
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides listen addresses from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("SIM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("SIM_FEED_ADDR"); v != "" {
		cfg.Feed.Addr = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.Market.InitialPrice <= 0 {
		return errors.New("market.initialPrice must be > 0")
	}
	if cfg.Market.TickSize <= 0 {
		return errors.New("market.tickSize must be > 0")
	}
	if cfg.Market.Volatility < 0 {
		return errors.New("market.volatility must be >= 0")
	}
	if cfg.Market.TimeStep <= 0 {
		return errors.New("market.timeStep must be > 0")
	}
	if cfg.Maker.MinSpreadBPS <= 0 {
		return errors.New("maker.minSpreadBps must be > 0")
	}
	if cfg.Maker.MaxSpreadBPS < cfg.Maker.MinSpreadBPS {
		return errors.New("maker.maxSpreadBps must be >= maker.minSpreadBps")
	}
	if cfg.Maker.BaseSpreadBPS < cfg.Maker.MinSpreadBPS || cfg.Maker.BaseSpreadBPS > cfg.Maker.MaxSpreadBPS {
		return fmt.Errorf("maker.baseSpreadBps must be within [%v, %v]",
			cfg.Maker.MinSpreadBPS, cfg.Maker.MaxSpreadBPS)
	}
	if cfg.Maker.OrderSize <= 0 {
		return errors.New("maker.orderSize must be > 0")
	}
	if cfg.Maker.MaxPositionSize <= 0 {
		return errors.New("maker.maxPositionSize must be > 0")
	}
	if cfg.Sim.TickIntervalMs <= 0 {
		return errors.New("sim.tickIntervalMs must be > 0")
	}
	if cfg.Sim.DurationMs < 0 {
		return errors.New("sim.durationMs must be >= 0")
	}
	if cfg.Sim.TakerRate < 0 || cfg.Sim.TakerRate > 1 {
		return errors.New("sim.takerRate must be within [0, 1]")
	}
	if cfg.Sim.TakerMaxQty <= 0 {
		return errors.New("sim.takerMaxQty must be > 0")
	}
	if cfg.Sim.BookDepth <= 0 {
		return errors.New("sim.bookDepth must be > 0")
	}
	return nil
}
