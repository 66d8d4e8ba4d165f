package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadConfig 热更新配置
type ReloadConfig struct {
	Enabled      bool          // 是否启用热更新
	CooldownTime time.Duration // 冷却时间，避免频繁更新
}

// DefaultReloadConfig 默认热更新配置
func DefaultReloadConfig() ReloadConfig {
	return ReloadConfig{
		Enabled:      true,
		CooldownTime: 2 * time.Second,
	}
}

// Reloader 监听配置文件变化，重新加载并回调。
// 加载或校验失败时保留旧配置，只记录错误。
type Reloader struct {
	config     ReloadConfig
	configPath string
	watcher    *fsnotify.Watcher

	mu         sync.RWMutex
	lastReload time.Time
	onReload   func(AppConfig) error
	onError    func(error)

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReloader 创建热更新器
func NewReloader(configPath string, cfg ReloadConfig) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Reloader{
		config:     cfg,
		configPath: configPath,
		watcher:    watcher,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// SetReloadHandler 设置重载处理函数，收到的是已通过校验的新配置。
func (r *Reloader) SetReloadHandler(handler func(AppConfig) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = handler
}

// SetErrorHandler 设置加载失败时的回调，可为 nil。
func (r *Reloader) SetErrorHandler(handler func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = handler
}

// Start 启动热更新监听
func (r *Reloader) Start(ctx context.Context) error {
	if !r.config.Enabled {
		return nil
	}

	if err := r.watcher.Add(r.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go r.watch(ctx)

	return nil
}

// Stop 停止热更新
func (r *Reloader) Stop() error {
	if !r.config.Enabled {
		if r.watcher != nil {
			return r.watcher.Close()
		}
		return nil
	}

	select {
	case <-r.stopChan:
		// 已经停止
	default:
		close(r.stopChan)
	}

	// 等待 goroutine 结束（带超时，watch 可能未启动）
	select {
	case <-r.doneChan:
	case <-time.After(1 * time.Second):
	}

	if r.watcher != nil {
		return r.watcher.Close()
	}

	return nil
}

// watch 监听文件变化
func (r *Reloader) watch(ctx context.Context) {
	defer close(r.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}

			// 只处理写入和创建事件
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				r.handleConfigChange()
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.reportError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// handleConfigChange 处理配置变化
func (r *Reloader) handleConfigChange() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 冷却窗口内的重复事件直接丢弃
	if time.Since(r.lastReload) < r.config.CooldownTime {
		return
	}

	cfg, err := LoadWithEnvOverrides(r.configPath)
	if err != nil {
		r.reportErrorLocked(fmt.Errorf("failed to reload config: %w", err))
		return
	}

	if r.onReload != nil {
		if err := r.onReload(cfg); err != nil {
			r.reportErrorLocked(fmt.Errorf("reload handler: %w", err))
			return
		}
	}

	r.lastReload = time.Now()
}

func (r *Reloader) reportError(err error) {
	r.mu.RLock()
	handler := r.onError
	r.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

func (r *Reloader) reportErrorLocked(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}

// LastReloadTime 获取最后一次成功重载的时间
func (r *Reloader) LastReloadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastReload
}
