package commission

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Setting keys used in the Store.
const (
	keyRate     = "commission.rate"
	keyPlatform = "commission.platform"
)

// Store persists the manager's settings. db.SettingsStore implements it.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Info is a snapshot of the manager's state for display.
type Info struct {
	Platform string             `json:"platform"`
	Rate     float64            `json:"rate"`
	Default  string             `json:"default_platform"`
	Presets  map[string]float64 `json:"presets"`
}

// Manager is a Provider whose rate the user can change. Changes are saved
// through the Store. It is safe for concurrent use.
type Manager struct {
	store           Store
	defaultPlatform string
	defaultRate     float64

	// saveMu orders writes to the store the same way as writes to memory.
	saveMu sync.Mutex

	mu       sync.RWMutex
	rate     float64
	platform string
}

// NewManager loads saved settings from store, falling back to the defaults
// when nothing valid is stored. store may be nil, in which case changes live
// only in memory.
func NewManager(store Store, defaultPlatform string, defaultRate float64) (*Manager, error) {
	if err := ValidateRate(defaultRate); err != nil {
		return nil, fmt.Errorf("default commission: %w", err)
	}
	m := &Manager{
		store:           store,
		defaultPlatform: defaultPlatform,
		defaultRate:     defaultRate,
		rate:            defaultRate,
		platform:        defaultPlatform,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	if m.store == nil {
		return nil
	}

	rawRate, okRate, err := m.store.Get(keyRate)
	if err != nil {
		return fmt.Errorf("loading commission rate: %w", err)
	}
	platform, okPlatform, err := m.store.Get(keyPlatform)
	if err != nil {
		return fmt.Errorf("loading commission platform: %w", err)
	}
	if !okRate || !okPlatform {
		return nil
	}

	rate, err := strconv.ParseFloat(rawRate, 64)
	if err == nil {
		err = ValidateRate(rate)
	}
	if err != nil || platform == "" {
		slog.Warn("ignoring invalid saved commission settings",
			"rate", rawRate, "platform", platform, "error", err)
		return nil
	}

	m.rate = rate
	m.platform = platform
	return nil
}

func (m *Manager) Rate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate
}

func (m *Manager) Label() string {
	return m.Platform()
}

func (m *Manager) Platform() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.platform
}

// SetRate sets a user-entered rate. An empty platform is recorded as Custom.
func (m *Manager) SetRate(rate float64, platform string) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	if platform == "" {
		platform = Custom
	}
	m.update(rate, platform)
	return nil
}

// SetPlatform switches to a preset platform's rate.
func (m *Manager) SetPlatform(name string) error {
	if name == Custom {
		return fmt.Errorf("use SetRate to enter a custom commission rate")
	}
	rate, ok := PresetRate(name)
	if !ok {
		return fmt.Errorf("unknown platform %q", name)
	}
	m.update(rate, name)
	return nil
}

// ResetToDefault restores the configured default platform and rate and
// forgets the saved setting, so later runs follow the configured default.
func (m *Manager) ResetToDefault() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.swap(m.defaultRate, m.defaultPlatform)
	m.forget()
}

func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Info{
		Platform: m.platform,
		Rate:     m.rate,
		Default:  m.defaultPlatform,
		Presets:  Presets(),
	}
}

// Snapshot returns the current setting as a Static provider, so a batch sees
// one rate even if the manager changes mid-run.
func (m *Manager) Snapshot() Static {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Static{RateValue: m.rate, LabelValue: m.platform}
}

func (m *Manager) update(rate float64, platform string) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.swap(rate, platform)
	m.save(rate, platform)
}

// swap replaces the in-memory setting. Callers hold saveMu.
func (m *Manager) swap(rate float64, platform string) {
	m.mu.Lock()
	oldRate, oldPlatform := m.rate, m.platform
	m.rate, m.platform = rate, platform
	m.mu.Unlock()

	slog.Info("commission updated",
		"old_platform", oldPlatform, "old_rate", oldRate,
		"platform", platform, "rate", rate)
}

// save writes the setting; a failure is logged and the in-memory value kept.
func (m *Manager) save(rate float64, platform string) {
	if m.store == nil {
		return
	}
	if err := m.store.Set(keyRate, strconv.FormatFloat(rate, 'f', -1, 64)); err != nil {
		slog.Error("saving commission rate", "error", err)
		return
	}
	if err := m.store.Set(keyPlatform, platform); err != nil {
		slog.Error("saving commission platform", "error", err)
	}
}

// forget removes the saved setting; a failure is logged.
func (m *Manager) forget() {
	if m.store == nil {
		return
	}
	for _, key := range []string{keyRate, keyPlatform} {
		if err := m.store.Delete(key); err != nil {
			slog.Error("clearing saved commission setting", "key", key, "error", err)
		}
	}
}
