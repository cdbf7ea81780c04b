package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "IMAPPUSH_"

	EnvConfig     = envPrefix + "CONFIG"
	envIMAPHost   = envPrefix + "IMAP_HOST"
	envIMAPPort   = envPrefix + "IMAP_PORT"
	envIMAPUser   = envPrefix + "IMAP_USER"
	envIMAPPass   = envPrefix + "IMAP_PASS"
	envWebhookURL = envPrefix + "WEBHOOK_URL"

	DefaultDisplayCount       = 25
	DefaultIdleRefreshMinutes = 24
	DefaultStatePath          = "imappush.db"
)

// Config holds non-secret configuration loaded from YAML.
type Config struct {
	Folders []string `yaml:"folders"`
	Push    Push     `yaml:"push"`
	State   State    `yaml:"state"`
	Status  Status   `yaml:"status"`
}

// Push tunes the IDLE sessions. It satisfies push.StoreConfig.
type Push struct {
	PollOnConnect bool `yaml:"poll_on_connect"`
	Display       int  `yaml:"display_count"`
	IdleRefresh   int  `yaml:"idle_refresh_minutes"`
}

func (p Push) PushPollOnConnect() bool { return p.PollOnConnect }
func (p Push) DisplayCount() int       { return p.Display }
func (p Push) IdleRefreshMinutes() int { return p.IdleRefresh }

// RefreshInterval is how often running IDLE sessions are restarted.
func (p Push) RefreshInterval() time.Duration {
	return time.Duration(p.IdleRefresh) * time.Minute
}

// State configures where push state is persisted.
type State struct {
	Path string `yaml:"path"`
}

// Status configures the HTTP status surface. An empty address disables it.
type Status struct {
	Addr string `yaml:"addr"`
}

// Env holds secrets and deployment settings read from the environment.
type Env struct {
	IMAPHost           string `env:"IMAP_HOST"`
	IMAPPort           int    `env:"IMAP_PORT" envDefault:"993"`
	IMAPUser           string `env:"IMAP_USER"`
	IMAPPass           string `env:"IMAP_PASS"`
	InsecureSkipVerify bool   `env:"IMAP_INSECURE_SKIP_VERIFY"`
	WebhookURL         string `env:"WEBHOOK_URL"`
	OTLPEndpoint       string `env:"OTLP_ENDPOINT"`
	OTLPInsecure       bool   `env:"OTLP_INSECURE"`
}

// IMAPAddr is host:port of the IMAP server.
func (e Env) IMAPAddr() string {
	return net.JoinHostPort(e.IMAPHost, strconv.Itoa(e.IMAPPort))
}

// Load reads configuration from a YAML file and fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Push: Push{
			Display:     DefaultDisplayCount,
			IdleRefresh: DefaultIdleRefreshMinutes,
		},
		State: State{Path: DefaultStatePath},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate performs basic validation on non-secret config.
func Validate(cfg Config) error {
	if len(cfg.Folders) == 0 {
		return errors.New("config must define at least one folder")
	}
	seen := map[string]bool{}
	for i, folder := range cfg.Folders {
		if strings.TrimSpace(folder) == "" {
			return fmt.Errorf("folder %d must have a name", i+1)
		}
		if seen[folder] {
			return fmt.Errorf("folder %q is listed twice", folder)
		}
		seen[folder] = true
	}
	if cfg.Push.Display <= 0 {
		return errors.New("push.display_count must be positive")
	}
	if cfg.Push.IdleRefresh <= 0 {
		return errors.New("push.idle_refresh_minutes must be positive")
	}
	if strings.TrimSpace(cfg.State.Path) == "" {
		return errors.New("state.path must not be empty")
	}
	return nil
}

// EnvFromEnv parses the IMAPPUSH_* environment and checks required entries.
func EnvFromEnv() (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: envPrefix}); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}

	missing := []string{}
	if strings.TrimSpace(e.IMAPHost) == "" {
		missing = append(missing, envIMAPHost)
	}
	if strings.TrimSpace(e.IMAPUser) == "" {
		missing = append(missing, envIMAPUser)
	}
	if strings.TrimSpace(e.IMAPPass) == "" {
		missing = append(missing, envIMAPPass)
	}
	if len(missing) > 0 {
		return Env{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if e.IMAPPort <= 0 || e.IMAPPort > 65535 {
		return Env{}, fmt.Errorf("invalid %s: %d", envIMAPPort, e.IMAPPort)
	}

	e.IMAPHost = strings.TrimSpace(e.IMAPHost)
	e.IMAPUser = strings.TrimSpace(e.IMAPUser)
	e.WebhookURL = strings.TrimSpace(e.WebhookURL)
	return e, nil
}

// Summary returns a concise config summary for validation runs.
func Summary(cfg Config, e Env) string {
	reportingStatus := "disabled"
	if e.WebhookURL != "" {
		reportingStatus = "enabled"
	}
	telemetryStatus := "disabled"
	if e.OTLPEndpoint != "" {
		telemetryStatus = "enabled"
	}
	return fmt.Sprintf(
		"Config summary\n"+
			"- folders: %s\n"+
			"- display count: %d\n"+
			"- idle refresh: %d min\n"+
			"- poll on connect: %t\n"+
			"- state path: %s\n"+
			"- status addr: %s\n"+
			"- reporting webhook: %s\n"+
			"- telemetry: %s",
		strings.Join(cfg.Folders, ", "),
		cfg.Push.Display,
		cfg.Push.IdleRefresh,
		cfg.Push.PollOnConnect,
		cfg.State.Path,
		defaultIfEmpty(cfg.Status.Addr, "(not set)"),
		reportingStatus,
		telemetryStatus,
	)
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
