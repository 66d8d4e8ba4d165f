package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 封装 zap 日志器，附带模拟器的领域事件方法。
type Logger struct {
	*zap.Logger
	config Config
}

// Config 日志配置
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json 或 console
	File   string `yaml:"file"`   // 非空时同时写入该文件
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// New 创建新的 Logger 实例
func New(cfg Config) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var stdoutEncoder zapcore.Encoder
	if cfg.Format == "console" {
		stdoutEncoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		stdoutEncoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
	}

	if cfg.File != "" {
		fileWriter, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(fileWriter),
			level,
		))
	}

	core := zapcore.NewTee(cores...)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		Logger: zapLogger,
		config: cfg,
	}, nil
}

// Named 返回带子系统名的 logger。
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger: l.Logger.Named(name),
		config: l.config,
	}
}

// LogQuote 记录双边报价事件。每个 tick 都会报价，走 debug 级别。
func LogQuote(l *zap.Logger, symbol string, bid, ask, spread float64) {
	l.Debug("quote",
		zap.String("symbol", symbol),
		zap.Float64("bid", bid),
		zap.Float64("ask", ask),
		zap.Float64("spread", spread))
}

// LogFill 记录成交事件。合成吃单流成交频繁，走 debug 级别。
func LogFill(l *zap.Logger, symbol string, orderID int64, price, quantity float64, side string) {
	l.Debug("fill",
		zap.String("symbol", symbol),
		zap.Int64("order_id", orderID),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.String("side", side))
}

// LogHalt 记录风控停机事件
func LogHalt(l *zap.Logger, reason string, position, totalPnL float64) {
	l.Warn("risk_halt",
		zap.String("reason", reason),
		zap.Float64("position", position),
		zap.Float64("total_pnl", totalPnL))
}

// Close 关闭日志器
func (l *Logger) Close() error {
	return l.Sync()
}
