// 配置热重载实现。
//
// 监听配置文件变化，重新加载并校验，只有校验通过的配置才会替换当前配置。
package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ConfigChange 代表一个字段的变化
type ConfigChange struct {
	// 字段路径，例如 "Log.Level"
	Path string `json:"path"`
	// 变化前的值（敏感字段不记录）
	OldValue any `json:"old_value,omitempty"`
	// 变化后的值（敏感字段不记录）
	NewValue any `json:"new_value,omitempty"`
	// 是否需要重启才能生效
	RequiresRestart bool `json:"requires_restart"`
}

// ReloadCallback 在新配置生效后调用
type ReloadCallback func(oldConfig, newConfig *Config, changes []ConfigChange)

// hotReloadableFields 运行中可直接生效的字段
var hotReloadableFields = map[string]string{
	"Log.Level": "日志级别",
}

// sensitiveFields 日志与变更记录中隐藏其值
var sensitiveFields = map[string]bool{
	"Events.Redis.Password": true,
}

// IsHotReloadable 判断字段是否可热重载
func IsHotReloadable(path string) bool {
	_, ok := hotReloadableFields[path]
	return ok
}

// Reloader 管理配置热重载
type Reloader struct {
	mu        sync.RWMutex
	loader    *Loader
	current   *Config
	version   int
	callbacks []ReloadCallback
	watcher   *FileWatcher
	logger    *zap.Logger
}

// NewReloader 创建热重载管理器，current 为已加载的配置
func NewReloader(loader *Loader, current *Config, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		loader:  loader,
		current: current,
		version: 1,
		logger:  logger.With(zap.String("component", "config_reloader")),
	}
}

// OnReload 注册配置重新加载的回调
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Config 返回当前配置
func (r *Reloader) Config() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Version 返回当前配置版本，每次成功重载加一
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Reload 重新加载配置。加载或校验失败时保留当前配置并返回错误；
// 没有变化时不触发回调。
func (r *Reloader) Reload() ([]ConfigChange, error) {
	next, err := r.loader.Load()
	if err != nil {
		r.logger.Warn("config reload rejected", zap.Error(err))
		return nil, err
	}
	if err := next.Validate(); err != nil {
		r.logger.Warn("config reload rejected", zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	prev := r.current
	changes := DiffConfig(prev, next)
	if len(changes) == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	r.current = next
	r.version++
	version := r.version
	callbacks := make([]ReloadCallback, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	for _, change := range changes {
		r.logChange(change)
	}
	r.logger.Info("config reloaded", zap.Int("version", version), zap.Int("changes", len(changes)))

	for _, cb := range callbacks {
		r.notify(cb, prev, next, changes)
	}
	return changes, nil
}

// notify 调用回调，捕获 panic
func (r *Reloader) notify(cb ReloadCallback, prev, next *Config, changes []ConfigChange) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reload callback panicked", zap.Any("panic", rec))
		}
	}()
	cb(prev, next, changes)
}

// Watch 监听加载器的配置文件，变化时自动重载
func (r *Reloader) Watch(ctx context.Context, opts ...WatcherOption) error {
	if r.loader.configPath == "" {
		return fmt.Errorf("no config file to watch")
	}

	opts = append([]WatcherOption{WithWatcherLogger(r.logger)}, opts...)
	w, err := NewFileWatcher([]string{r.loader.configPath}, opts...)
	if err != nil {
		return err
	}
	w.OnChange(func(event FileEvent) {
		if event.Op == FileOpRemove {
			r.logger.Warn("config file removed, keeping current config", zap.String("path", event.Path))
			return
		}
		_, _ = r.Reload()
	})
	if err := w.Start(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

// Stop 停止文件监听
func (r *Reloader) Stop() {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

func (r *Reloader) logChange(change ConfigChange) {
	fields := []zap.Field{
		zap.String("path", change.Path),
		zap.Bool("requires_restart", change.RequiresRestart),
	}
	if !sensitiveFields[change.Path] {
		fields = append(fields,
			zap.Any("old_value", change.OldValue),
			zap.Any("new_value", change.NewValue),
		)
	}
	r.logger.Info("configuration changed", fields...)
}

// DiffConfig 返回两份配置之间变化的字段
func DiffConfig(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

// compareStructs 递归比较结构体字段
func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]ConfigChange) {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldPath := field.Name
		if prefix != "" {
			fieldPath = prefix + "." + field.Name
		}

		oldField := oldVal.Field(i)
		newField := newVal.Field(i)

		if oldField.Kind() == reflect.Struct {
			compareStructs(fieldPath, oldField, newField, changes)
			continue
		}
		if reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			continue
		}

		change := ConfigChange{
			Path:            fieldPath,
			RequiresRestart: !IsHotReloadable(fieldPath),
		}
		if !sensitiveFields[fieldPath] {
			change.OldValue = oldField.Interface()
			change.NewValue = newField.Interface()
		}
		*changes = append(*changes, change)
	}
}
