package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearth Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	LLM           LLMConfig           `yaml:"llm"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcribe    TranscribeConfig    `yaml:"transcribe"`
	Policy        PolicyConfig        `yaml:"policy"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings for the interaction log.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for call metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// APIConfig contains HTTP command surface settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// HomeAssistantConfig contains connection settings for the device-control API.
type HomeAssistantConfig struct {
	// URL is the base URL of the Home Assistant instance
	// (e.g. "http://homeassistant.local:8123").
	URL string `yaml:"url"`

	// Token is a long-lived access token.
	// Always set via HEARTH_HASS_TOKEN in production.
	Token string `yaml:"token"`

	// Timeout is the per-call HTTP timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// LLMConfig contains model endpoint settings.
type LLMConfig struct {
	// BaseURL is an OpenAI-compatible chat-completions endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the endpoint. Set via HEARTH_LLM_API_KEY.
	APIKey string `yaml:"api_key"`

	// Model is the default text model (e.g. "gpt-5-mini").
	Model string `yaml:"model"`

	// AudioModel is the model used for the direct-audio pathway.
	AudioModel string `yaml:"audio_model"`

	// RouterModel is the cheap model used for the two-step candidate pre-pass.
	RouterModel string `yaml:"router_model"`

	// TwoStep enables the candidate-reduction pre-pass before the main call.
	TwoStep bool `yaml:"two_step"`

	// Timeout is the per-call network timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// AudioConfig contains microphone capture settings.
type AudioConfig struct {
	// Binary is the path to the capture executable (ffmpeg).
	Binary string `yaml:"binary"`

	// Device is the ALSA input device (e.g. "plughw:3,0").
	Device string `yaml:"device"`

	// AssetPath is the fixed path the capture process writes to.
	AssetPath string `yaml:"asset_path"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// MaxDuration bounds a single recording (seconds).
	MaxDuration int `yaml:"max_duration"`

	// SupervisorTimeout forces a stuck non-terminal state to Failed (seconds).
	SupervisorTimeout int `yaml:"supervisor_timeout"`
}

// TranscribeConfig contains whisper.cpp settings for the legacy pathway.
type TranscribeConfig struct {
	// Binary is the path to the whisper-cli executable.
	Binary string `yaml:"binary"`

	// ModelPath is the path to the ggml model file.
	ModelPath string `yaml:"model_path"`

	// OutputDir is where transcription text files are written.
	OutputDir string `yaml:"output_dir"`

	// Timeout bounds a single transcription run (seconds).
	Timeout int `yaml:"timeout"`
}

// PolicyConfig contains the action allow/deny rule set.
type PolicyConfig struct {
	// DenyServices lists "domain.service" pairs that are never executed.
	DenyServices []string `yaml:"deny_services"`

	// AllowServices, when non-empty, restricts execution to the listed
	// "domain.service" pairs.
	AllowServices []string `yaml:"allow_services"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTH_SECTION_KEY
// For example: HEARTH_DATABASE_PATH, HEARTH_LLM_API_KEY
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Hearth",
		},
		Database: DatabaseConfig{
			Path:        "./data/hearth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearth-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8098,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		HomeAssistant: HomeAssistantConfig{
			URL:     "http://localhost:8123",
			Timeout: 10,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-5-mini",
			AudioModel:  "gpt-4o-audio-preview",
			RouterModel: "gpt-5-nano",
			Timeout:     60,
		},
		Audio: AudioConfig{
			Binary:            "/usr/bin/ffmpeg",
			Device:            "default",
			AssetPath:         "./data/current_request.wav",
			SampleRate:        16000,
			MaxDuration:       300,
			SupervisorTimeout: 330,
		},
		Transcribe: TranscribeConfig{
			Binary:    "/usr/local/bin/whisper-cli",
			ModelPath: "./models/ggml-tiny.en-q5_1.bin",
			OutputDir: "./data/texts",
			Timeout:   60,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEARTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HEARTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEARTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HEARTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HEARTH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("HEARTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("HEARTH_HASS_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("HEARTH_HASS_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	if v := os.Getenv("HEARTH_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("HEARTH_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.HomeAssistant.URL == "" {
		errs = append(errs, "homeassistant.url is required")
	} else if !strings.HasPrefix(c.HomeAssistant.URL, "http://") && !strings.HasPrefix(c.HomeAssistant.URL, "https://") {
		errs = append(errs, "homeassistant.url must start with http:// or https://")
	}

	if c.LLM.BaseURL == "" {
		errs = append(errs, "llm.base_url is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if c.LLM.Timeout < 1 {
		errs = append(errs, "llm.timeout must be at least 1 second")
	}

	if c.Audio.AssetPath == "" {
		errs = append(errs, "audio.asset_path is required")
	}
	if c.Audio.SupervisorTimeout < 1 {
		errs = append(errs, "audio.supervisor_timeout must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
