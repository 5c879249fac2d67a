// Package config loads site settings from an optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Orphan policies decide what happens to likes and comments when their media file is deleted.
const (
	OrphanKeep  = "keep"
	OrphanPurge = "purge"
)

// Weather contains the forecast location and cache settings.
type Weather struct {
	Latitude       float64 `toml:"latitude" env:"WEATHER_LAT"`
	Longitude      float64 `toml:"longitude" env:"WEATHER_LON"`
	BaseURL        string  `toml:"base_url" env:"WEATHER_BASE_URL"`
	TTLSeconds     int     `toml:"ttl_seconds" env:"WEATHER_TTL_SECONDS"`
	TimeoutSeconds int     `toml:"timeout_seconds" env:"WEATHER_TIMEOUT_SECONDS"`
}

// Socials holds the outbound community links shown on every page.
type Socials struct {
	Facebook  string `toml:"facebook" json:"facebook,omitempty" env:"SOCIAL_FACEBOOK"`
	Instagram string `toml:"instagram" json:"instagram,omitempty" env:"SOCIAL_INSTAGRAM"`
	WhatsApp  string `toml:"whatsapp" json:"whatsapp,omitempty" env:"SOCIAL_WHATSAPP"`
}

// Config is the full runtime configuration.
type Config struct {
	Port              string  `toml:"port" env:"PORT"`
	Bind              string  `toml:"bind" env:"BIND"`
	DataDir           string  `toml:"data_dir" env:"DATA_DIR"`
	DatabaseURL       string  `toml:"database_url" env:"DATABASE_URL"`
	RedisURL          string  `toml:"redis_url" env:"REDIS_URL"`
	AdminKeyFile      string  `toml:"admin_key_file" env:"ADMIN_KEY_FILE"`
	SessionSecret     string  `toml:"session_secret" env:"SESSION_SECRET"`
	SessionTTLMinutes int     `toml:"session_ttl_minutes" env:"SESSION_TTL_MINUTES"`
	OrphanPolicy      string  `toml:"orphan_policy" env:"ORPHAN_POLICY"`
	Weather           Weather `toml:"weather"`
	Socials           Socials `toml:"socials"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Port:              "5050",
		Bind:              "127.0.0.1",
		DataDir:           ".",
		SessionTTLMinutes: 12 * 60,
		OrphanPolicy:      OrphanKeep,
		Weather: Weather{
			Latitude:       37.579171,
			Longitude:      35.820547,
			BaseURL:        "https://api.open-meteo.com/v1/forecast",
			TTLSeconds:     600,
			TimeoutSeconds: 6,
		},
		Socials: Socials{
			Facebook:  "https://www.facebook.com/DuzagacKoyuKozan/?locale=tr_TR",
			Instagram: "https://www.instagram.com/duzagacky/",
			WhatsApp:  "https://chat.whatsapp.com/J9tfpgXd3iu8HM1FBxC2U7",
		},
	}
}

// Load reads path (if it exists), applies environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.Bind = strings.TrimSpace(c.Bind)
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "."
	}
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if c.DatabaseURL == "" {
		c.DatabaseURL = filepath.Join(c.DataDir, "data.db")
	}
	c.AdminKeyFile = strings.TrimSpace(c.AdminKeyFile)
	if c.AdminKeyFile == "" {
		c.AdminKeyFile = filepath.Join(c.DataDir, ".admin_key")
	}
	c.OrphanPolicy = strings.ToLower(strings.TrimSpace(c.OrphanPolicy))
	if c.OrphanPolicy == "" {
		c.OrphanPolicy = OrphanKeep
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.OrphanPolicy != OrphanKeep && c.OrphanPolicy != OrphanPurge {
		return fmt.Errorf("orphan_policy must be %q or %q, got %q", OrphanKeep, OrphanPurge, c.OrphanPolicy)
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("session_ttl_minutes must be positive")
	}
	if c.Weather.TTLSeconds <= 0 {
		return errors.New("weather.ttl_seconds must be positive")
	}
	if c.Weather.TimeoutSeconds <= 0 {
		return errors.New("weather.timeout_seconds must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Bind + ":" + c.Port
}

// SessionTTL is the lifetime of an admin session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) StaticDir() string { return filepath.Join(c.DataDir, "static") }
func (c *Config) PhotosDir() string { return filepath.Join(c.StaticDir(), "fotograflar") }
func (c *Config) VideosDir() string { return filepath.Join(c.StaticDir(), "videolar") }
func (c *Config) AnnouncementFile() string { return filepath.Join(c.DataDir, "duyurular.txt") }
func (c *Config) ContactFile() string { return filepath.Join(c.DataDir, "iletisim.txt") }

const defaultContact = "Muhtar: \nTelefon: \nAdres: Düzağaç Köyü / Kozan\n"

// EnsureLayout creates the media directories and seeds the text files that are missing.
// Existing files are never touched.
func (c *Config) EnsureLayout() error {
	for _, dir := range []string{c.PhotosDir(), c.VideosDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	seeds := map[string]string{
		c.AnnouncementFile(): "",
		c.ContactFile():      defaultContact,
	}
	for path, content := range seeds {
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
	}
	return nil
}
