package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler is called with the base name of a changed config file.
type ChangeHandler func(file string) error

// Manager watches the config directory and invokes registered handlers
// on change, debouncing the editor write bursts fsnotify reports.
type Manager struct {
	configDir string
	logger    *zap.Logger
	watcher   *fsnotify.Watcher

	mu       sync.RWMutex
	handlers map[string][]ChangeHandler
	stopCh   chan struct{}
	started  bool
}

// NewManager creates a manager for the given config directory.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if configDir == "" {
		configDir = "config"
	}
	return &Manager{
		configDir: configDir,
		logger:    logger,
		handlers:  make(map[string][]ChangeHandler),
		stopCh:    make(chan struct{}),
	}, nil
}

// OnChange registers a handler for one config file (base name, e.g.
// "models.yaml").
func (m *Manager) OnChange(file string, handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[file] = append(m.handlers[file], handler)
}

// Start begins watching. Safe to call once.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(m.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", m.configDir, err)
	}
	m.watcher = watcher
	m.started = true

	go m.loop()
	m.logger.Info("Config watcher started", zap.String("dir", m.configDir))
	return nil
}

// Stop shuts the watcher down.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	close(m.stopCh)
	m.watcher.Close()
	m.started = false
}

func (m *Manager) loop() {
	// Debounce per file: editors and config maps produce several events
	// for one logical change.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
				continue
			}
			pending[name] = time.Now()

		case <-ticker.C:
			now := time.Now()
			for name, at := range pending {
				if now.Sub(at) < 300*time.Millisecond {
					continue
				}
				delete(pending, name)
				m.dispatch(name)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Config watcher error", zap.Error(err))

		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) dispatch(file string) {
	m.mu.RLock()
	handlers := append([]ChangeHandler(nil), m.handlers[file]...)
	m.mu.RUnlock()

	for _, h := range handlers {
		if err := h(file); err != nil {
			m.logger.Warn("Config change handler failed",
				zap.String("file", file),
				zap.Error(err),
			)
			continue
		}
	}
	if len(handlers) > 0 {
		m.logger.Info("Config reloaded", zap.String("file", file))
	}
}
