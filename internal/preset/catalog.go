package preset

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mixdown/internal/logging"
	"mixdown/internal/services"
)

//go:embed presets.json
var builtinPresets []byte

// Preset is one named parameter set for the vinyl effect chain.
type Preset struct {
	Name         string  `json:"name"`
	HighpassFreq float64 `json:"highpass_freq"`
	LowpassFreq  float64 `json:"lowpass_freq"`
	EchoGain     float64 `json:"echo_gain"`
	EchoDelay    float64 `json:"echo_delay"`
	TremoloFreq  float64 `json:"tremolo_freq"`
	TremoloDepth float64 `json:"tremolo_depth"`
	EQLow        float64 `json:"eq_low"`
	EQHigh       float64 `json:"eq_high"`
	Volume       float64 `json:"volume"`
}

// Defaults returns the parameter set used when no preset is named.
func Defaults() Preset {
	return Preset{
		Name:         "Custom",
		HighpassFreq: 500,
		LowpassFreq:  12000,
		EchoGain:     0.8,
		EchoDelay:    60,
		TremoloFreq:  8,
		TremoloDepth: 0.2,
		EQLow:        -6,
		EQHigh:       3,
		Volume:       1.2,
	}
}

// Catalog provides thread-safe access to the preset file.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	presets []Preset
}

// Open loads the preset file at path, seeding it with the builtin catalog
// when it does not exist yet.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Catalog{
		path:   path,
		logger: logging.NewComponentLogger(logger, "preset"),
	}

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the backing file location.
func (c *Catalog) Path() string {
	return c.path
}

// List returns every preset in file order.
func (c *Catalog) List() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Get looks a preset up by name.
func (c *Catalog) Get(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Save upserts a preset and persists the catalog. An existing preset with
// the same name is replaced in place so the file order stays stable.
func (c *Catalog) Save(p Preset) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return services.Wrap(services.ErrValidation, "preset", "save", "preset name must not be empty", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	replaced := false
	for i := range c.presets {
		if c.presets[i].Name == p.Name {
			c.presets[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		c.presets = append(c.presets, p)
	}

	if err := c.save(); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}
	c.logger.Debug("saved preset", logging.String("name", p.Name), logging.Bool("replaced", replaced))
	return nil
}

// Delete removes a preset by name and persists the change.
func (c *Catalog) Delete(name string) error {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i := range c.presets {
		if c.presets[i].Name == name {
			index = i
			break
		}
	}
	if index < 0 {
		return services.Wrap(services.ErrNotFound, "preset", "delete", fmt.Sprintf("preset %q", name), nil)
	}
	c.presets = append(c.presets[:index], c.presets[index+1:]...)

	if err := c.save(); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}
	c.logger.Debug("deleted preset", logging.String("name", name))
	return nil
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.presets)
}

func (c *Catalog) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.seed()
	}
	if err != nil {
		return fmt.Errorf("read preset file: %w", err)
	}
	if len(data) == 0 {
		return c.seed()
	}

	var presets []Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return fmt.Errorf("parse preset file %s: %w", c.path, err)
	}
	c.presets = presets
	c.logger.Debug("loaded presets", logging.Int("count", len(presets)), logging.String("path", c.path))
	return nil
}

func (c *Catalog) seed() error {
	var presets []Preset
	if err := json.Unmarshal(builtinPresets, &presets); err != nil {
		return fmt.Errorf("parse builtin presets: %w", err)
	}
	c.presets = presets
	if err := c.save(); err != nil {
		return fmt.Errorf("seed preset file: %w", err)
	}
	c.logger.Info("seeded preset catalog", logging.Int("count", len(presets)), logging.String("path", c.path))
	return nil
}

// save writes the catalog to disk atomically. Callers hold the lock.
func (c *Catalog) save() error {
	data, err := json.MarshalIndent(c.presets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
