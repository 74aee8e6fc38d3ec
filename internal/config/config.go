package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/streamshield/streamshield/internal/logger"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes the network camera endpoint.
type SourceConfig struct {
	URI       string `json:"uri" yaml:"uri"`
	LatencyMs int    `json:"latency_ms" yaml:"latency_ms"`
}

// ChainConfig names the element factories of the fixed processing chain,
// in pipeline order between the source and the filters.
type ChainConfig struct {
	Depayloader string `json:"depayloader" yaml:"depayloader"`
	Parser      string `json:"parser" yaml:"parser"`
	Decoder     string `json:"decoder" yaml:"decoder"`
	Converter   string `json:"converter" yaml:"converter"`
	Sink        string `json:"sink" yaml:"sink"`
}

// FilterConfig describes one privacy filter in the chain. Property names
// the element's boolean visualization flag; filters whose factory exposes no
// such flag leave it empty and run always-on. Properties carries any extra
// element properties applied once at build time (e.g. a detector cascade
// path).
type FilterConfig struct {
	ID         string                 `json:"id" yaml:"id"`
	Factory    string                 `json:"factory" yaml:"factory"`
	Property   string                 `json:"property" yaml:"property"`
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
	OnLabel    string                 `json:"on_label" yaml:"on_label"`
	OffLabel   string                 `json:"off_label" yaml:"off_label"`
	Enabled    bool                   `json:"enabled" yaml:"enabled"`
}

// WindowConfig is the render window geometry.
type WindowConfig struct {
	Title  string `json:"title" yaml:"title"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Config is the full application configuration.
type Config struct {
	Source     SourceConfig   `json:"source" yaml:"source"`
	Chain      ChainConfig    `json:"chain" yaml:"chain"`
	Filters    []FilterConfig `json:"filters" yaml:"filters"`
	Window     WindowConfig   `json:"window" yaml:"window"`
	ServerPort int            `json:"server_port" yaml:"server_port"`
	LogLevel   string         `json:"log_level" yaml:"log_level"`
}

// Manager handles loading and persisting the configuration.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
}

// NewManager loads the configuration from configFile, falling back to
// $HOME/.config/streamshield/config.yaml. A missing file is created with
// defaults.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "streamshield")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("source", m.config.Source.URI).
		Int("filters", len(m.config.Filters)).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration: an H.264 RTSP camera rendered
// into an X11 window, with the three stock privacy filters disabled.
func Defaults() *Config {
	return &Config{
		Source: SourceConfig{
			URI:       "rtsp://127.0.0.1:8554/stream",
			LatencyMs: 200,
		},
		Chain: ChainConfig{
			Depayloader: "rtph264depay",
			Parser:      "h264parse",
			Decoder:     "avdec_h264",
			Converter:   "videoconvert",
			Sink:        "ximagesink",
		},
		Filters: []FilterConfig{
			// faceblur exposes no runtime toggle flag; it blurs whatever
			// its cascade matches for as long as it sits in the chain.
			{
				ID:      "faceblur",
				Factory: "faceblur",
				Enabled: true,
			},
			{
				ID:       "facearea",
				Factory:  "facedetect",
				Property: "display",
				OnLabel:  "faceArea HIDE",
				OffLabel: "faceArea SHOW",
			},
			{
				ID:      "plateblur",
				Factory: "faceblur",
				Properties: map[string]interface{}{
					"profile": "/usr/share/opencv4/haarcascades/haarcascade_russian_plate_number.xml",
				},
				Enabled: true,
			},
		},
		Window: WindowConfig{
			Title:  "StreamShield CCTV",
			Width:  640,
			Height: 480,
		},
		ServerPort: 8080,
		LogLevel:   "info",
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Filters == nil {
		cfg.Filters = []FilterConfig{}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	cfg.Filters = append([]FilterConfig(nil), m.config.Filters...)
	for i, f := range cfg.Filters {
		if f.Properties == nil {
			continue
		}
		props := make(map[string]interface{}, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		cfg.Filters[i].Properties = props
	}
	return &cfg
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetPort overrides the server port.
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
}

// SetLogLevel overrides the log level.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// GetConfigPath returns the path of the loaded config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
