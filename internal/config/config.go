package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"mergeanddown/internal/adapters/downloader"
)

const (
	appName   = "mergeanddown"
	envPrefix = "MERGEANDDOWN"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server  ServerConfig
	Source  SourceConfig
	Mux     MuxConfig
	Storage StorageConfig
	Log     LogConfig
	Scan    ScanConfig
}

type ServerConfig struct {
	Addr      string
	RateLimit float64
	RateBurst int
}

type SourceConfig struct {
	YtDlpPath      string
	InfoTimeout    time.Duration
	ResolveTimeout time.Duration
}

type MuxConfig struct {
	FFmpegPath   string
	AudioBitrate string
}

type StorageConfig struct {
	ScratchDir    string
	SweepSchedule string
	MaxAge        time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type ScanConfig struct {
	Timeout time.Duration
}

// Loader resolves configuration from defaults, an optional config file,
// MERGEANDDOWN_* environment variables and bound flags, lowest to highest.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment bindings set.
func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.rate_limit", 2.0)
	v.SetDefault("server.rate_burst", 4)
	v.SetDefault("source.ytdlp_path", "")
	v.SetDefault("source.info_timeout", 2*time.Minute)
	v.SetDefault("source.resolve_timeout", time.Minute)
	v.SetDefault("mux.ffmpeg_path", "ffmpeg")
	v.SetDefault("mux.audio_bitrate", "192k")
	v.SetDefault("storage.scratch_dir", filepath.Join(os.TempDir(), appName))
	v.SetDefault("storage.sweep_schedule", "@every 15m")
	v.SetDefault("storage.max_age", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("scan.timeout", 30*time.Second)

	// MERGEANDDOWN_SERVER_ADDR and friends.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names the tools themselves document.
	_ = v.BindEnv("source.ytdlp_path", envPrefix+"_SOURCE_YTDLP_PATH", "YTDLP_PATH")
	_ = v.BindEnv("mux.ffmpeg_path", envPrefix+"_MUX_FFMPEG_PATH", "FFMPEG_PATH")
	_ = v.BindEnv("server.addr", envPrefix+"_SERVER_ADDR", "ADDR")

	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SearchPaths lists the directories a config.yaml is looked up in.
func SearchPaths() []string {
	return []string{
		".",
		filepath.Join(xdg.ConfigHome, appName),
		filepath.Join("/etc", appName),
	}
}

// Load reads .env and the config file, then resolves the Config. An explicit
// file must exist; the search path may come up empty.
func (l *Loader) Load(file string) (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if file != "" {
		l.v.SetConfigFile(file)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", file)
		}
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			l.v.AddConfigPath(p)
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:      l.v.GetString("server.addr"),
			RateLimit: l.v.GetFloat64("server.rate_limit"),
			RateBurst: l.v.GetInt("server.rate_burst"),
		},
		Source: SourceConfig{
			YtDlpPath:      l.v.GetString("source.ytdlp_path"),
			InfoTimeout:    l.v.GetDuration("source.info_timeout"),
			ResolveTimeout: l.v.GetDuration("source.resolve_timeout"),
		},
		Mux: MuxConfig{
			FFmpegPath:   l.v.GetString("mux.ffmpeg_path"),
			AudioBitrate: l.v.GetString("mux.audio_bitrate"),
		},
		Storage: StorageConfig{
			ScratchDir:    l.v.GetString("storage.scratch_dir"),
			SweepSchedule: l.v.GetString("storage.sweep_schedule"),
			MaxAge:        l.v.GetDuration("storage.max_age"),
		},
		Log: LogConfig{
			Level:  l.v.GetString("log.level"),
			Format: l.v.GetString("log.format"),
		},
		Scan: ScanConfig{
			Timeout: l.v.GetDuration("scan.timeout"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed returns the file Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// muxMargin covers muxing and delivery on top of the fetch deadlines.
const muxMargin = 10 * time.Minute

// MaxJobDuration is the longest a merge job can keep its artifacts: catalog
// query, format resolution, the download deadline and the mux margin.
func (c *Config) MaxJobDuration() time.Duration {
	return c.Source.InfoTimeout + c.Source.ResolveTimeout + downloader.DefaultTimeout + muxMargin
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.RateLimit < 0 {
		return errors.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Source.InfoTimeout <= 0 || c.Source.ResolveTimeout <= 0 {
		return errors.New("source timeouts must be positive")
	}
	if c.Storage.ScratchDir == "" {
		return errors.New("storage.scratch_dir must be set")
	}
	if c.Storage.SweepSchedule != "" {
		if limit := c.MaxJobDuration(); c.Storage.MaxAge <= limit {
			return errors.Errorf("storage.max_age must exceed the longest job (%s), got %s", limit, c.Storage.MaxAge)
		}
	}
	switch c.Log.Format {
	case "auto", "console", "json":
	default:
		return errors.Errorf("log.format must be auto, console or json, got %q", c.Log.Format)
	}
	return nil
}
