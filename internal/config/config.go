package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"flashcard_spider/internal/urlutil"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

const CookieEnv = "COOKIE_STR"

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
	ListID  int    `yaml:"list_id"`
	ListURL string `yaml:"list_url"`
	Pages   int    `yaml:"pages"`
	// AutoPages reads the last page from the pagination control instead of Pages.
	AutoPages bool `yaml:"auto_pages"`
}

type HTTPConfig struct {
	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BackoffMS      int    `yaml:"backoff_ms"`
	DelayMS        int    `yaml:"delay_ms"`
	RespectRobots  bool   `yaml:"respect_robots"`
}

type AuthConfig struct {
	Cookie string `yaml:"cookie"`
}

type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Name  string `yaml:"name"`
	Stats bool   `yaml:"stats"`
}

type MongoConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Records string `yaml:"records"`
		Runs    string `yaml:"runs"`
	} `yaml:"collections"`
}

type SpiderConfig struct {
	Site   SiteConfig   `yaml:"site"`
	HTTP   HTTPConfig   `yaml:"http"`
	Auth   AuthConfig   `yaml:"auth"`
	Output OutputConfig `yaml:"output"`
	Mongo  MongoConfig  `yaml:"mongo"`
}

func Default() SpiderConfig {
	cfg := SpiderConfig{
		Site: SiteConfig{
			BaseURL: "https://study4.com",
			ListID:  354,
			Pages:   16,
		},
		HTTP: HTTPConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) " +
				"Chrome/120.0.0.0 Safari/537.36",
			AcceptLanguage: "vi,en;q=0.9",
			TimeoutSec:     20,
			MaxAttempts:    3,
			BackoffMS:      1200,
			DelayMS:        500,
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Mongo: MongoConfig{
			Database: "flashcards",
		},
	}
	cfg.Mongo.Collections.Records = "records"
	cfg.Mongo.Collections.Runs = "runs"
	return cfg
}

// zeroableKnobs are the settings where an explicit 0 is meaningful. mergo treats
// zero as unset, so their presence is read separately and applied after the merge.
type zeroableKnobs struct {
	HTTP struct {
		BackoffMS *int `yaml:"backoff_ms"`
		DelayMS   *int `yaml:"delay_ms"`
	} `yaml:"http"`
}

// LoadConfig reads path (a missing file is fine), fills unset fields from
// Default and applies the COOKIE_STR environment override.
func LoadConfig(path string) (*SpiderConfig, error) {
	var (
		cfg   SpiderConfig
		knobs zeroableKnobs
	)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("can't parse %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &knobs); err != nil {
			return nil, fmt.Errorf("can't parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("can't apply defaults: %w", err)
	}
	if knobs.HTTP.BackoffMS != nil {
		cfg.HTTP.BackoffMS = *knobs.HTTP.BackoffMS
	}
	if knobs.HTTP.DelayMS != nil {
		cfg.HTTP.DelayMS = *knobs.HTTP.DelayMS
	}

	if cookie := strings.TrimSpace(os.Getenv(CookieEnv)); cookie != "" {
		cfg.Auth.Cookie = cookie
	}
	return &cfg, nil
}

func (c *SpiderConfig) Validate() error {
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return errors.New("site.base_url is required")
	}
	if _, err := urlutil.Origin(c.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if c.Site.ListURL == "" && c.Site.ListID <= 0 {
		return errors.New("site.list_id must be positive when site.list_url is empty")
	}
	if !c.Site.AutoPages && c.Site.Pages <= 0 {
		return errors.New("site.pages must be positive unless site.auto_pages is set")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return errors.New("http.max_attempts must be positive")
	}
	if c.HTTP.BackoffMS < 0 || c.HTTP.DelayMS < 0 {
		return errors.New("http.backoff_ms and http.delay_ms must not be negative")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir is required")
	}
	return nil
}

func (c *SpiderConfig) ListURL() string {
	if c.Site.ListURL != "" {
		return c.Site.ListURL
	}
	return urlutil.ListURL(c.Site.BaseURL, c.Site.ListID)
}

// LastPage is the fixed page count, or 0 when it should be detected.
func (c *SpiderConfig) LastPage() int {
	if c.Site.AutoPages {
		return 0
	}
	return c.Site.Pages
}

func (c *SpiderConfig) OutputName() string {
	if c.Output.Name != "" {
		return c.Output.Name
	}
	return fmt.Sprintf("study4_list_%d", c.Site.ListID)
}

func (c *SpiderConfig) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSec) * time.Second
}

func (c *SpiderConfig) Backoff() time.Duration {
	return time.Duration(c.HTTP.BackoffMS) * time.Millisecond
}

func (c *SpiderConfig) Delay() time.Duration {
	return time.Duration(c.HTTP.DelayMS) * time.Millisecond
}
