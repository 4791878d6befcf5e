package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"sync"
)

// Manager 설정 서비스. 기본 설정을 한 번 로드하고 세션 오버라이드를 매번 다시 적용한다.
type Manager struct {
	mu        sync.Mutex
	path      string
	logger    *slog.Logger
	base      *Configuration
	loaded    bool
	overrides Overrides
}

// Option Manager 옵션
type Option func(*Manager)

// WithPath 설정 파일 경로 지정. 비어 있으면 홈 디렉토리 기본 경로.
func WithPath(path string) Option {
	return func(m *Manager) { m.path = path }
}

// WithLogger 로거 지정
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager 설정 서비스 생성
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HomeDir $HOME, 사용자 DB, /home/$USER 순으로 홈 디렉토리 결정
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	if name := os.Getenv("USER"); name != "" {
		return "/home/" + name
	}
	return ""
}

// DefaultPath ~/.pg_ai.config
func DefaultPath() (string, error) {
	home := HomeDir()
	if home == "" {
		return "", errors.New("cannot determine home directory for config file")
	}
	return filepath.Join(home, FileName), nil
}

// Path 로드 대상 설정 파일 경로
func (m *Manager) Path() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pathLocked()
}

func (m *Manager) pathLocked() (string, error) {
	if m.path != "" {
		return m.path, nil
	}
	return DefaultPath()
}

// Load 기본 경로에서 설정 로드
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, err := m.pathLocked()
	if err != nil {
		return err
	}
	return m.loadLocked(path)
}

// LoadFile 지정한 경로에서 설정 로드
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
	return m.loadLocked(path)
}

func (m *Manager) loadLocked(path string) error {
	m.logger.Info("config.load.start", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			missing := &MissingError{Path: path}
			m.logger.Error("config.load.missing", "path", path, "guidance", missing.Guidance())
			return missing
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(string(data), WithParseLogger(m.logger))
	if err != nil {
		m.logger.Error("config.load.parse_failed", "path", path, "error", err)
		return err
	}

	m.base = cfg
	m.loaded = true
	m.logger.Info("config.load.done", "path", path, "providers", len(cfg.Providers))
	return nil
}

func (m *Manager) ensureLoadedLocked() error {
	if m.loaded {
		return nil
	}
	path, err := m.pathLocked()
	if err != nil {
		return err
	}
	return m.loadLocked(path)
}

// Config 기본 설정 위에 저장된 세션 오버라이드를 적용한 유효 설정.
// 첫 호출에서 한 번만 파일을 읽는다.
func (m *Manager) Config() (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return Effective(m.base, m.overrides), nil
}

// Effective 기본 설정 위에 주어진 오버라이드만 적용. 저장된 세션 오버라이드는 무시한다.
func (m *Manager) Effective(o Overrides) (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return Effective(m.base, o), nil
}

// Base 파일에서 읽은 그대로의 설정 사본
func (m *Manager) Base() (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return m.base.Clone(), nil
}

// SetOverrides 세션 오버라이드 교체. 누적되지 않는다.
func (m *Manager) SetOverrides(o Overrides) {
	m.mu.Lock()
	m.overrides = o
	m.mu.Unlock()
}

// ClearOverrides 세션 오버라이드 제거
func (m *Manager) ClearOverrides() {
	m.SetOverrides(Overrides{})
}

// Loaded 로드 여부
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Reset 초기 상태로 되돌림 (테스트용)
func (m *Manager) Reset() {
	m.mu.Lock()
	m.base = nil
	m.loaded = false
	m.overrides = Overrides{}
	m.mu.Unlock()
}

// MustLoad 설정을 읽지 못하면 panic. 시작 시점에만 사용한다.
func (m *Manager) MustLoad() *Configuration {
	cfg, err := m.Config()
	if err != nil {
		panic(fmt.Sprintf("load configuration: %v", err))
	}
	return cfg
}
