package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// SelectorConfig identifies a browser element. By is one of class, css or xpath.
type SelectorConfig struct {
	By    string `yaml:"by"`
	Value string `yaml:"value"`
}

type BrowserConfig struct {
	Name        string                 `yaml:"name"`
	Args        []string               `yaml:"args"`
	Prefs       map[string]interface{} `yaml:"prefs"`
	Headless    *bool                  `yaml:"headless"`
	ExecPath    string                 `yaml:"exec_path"`
	DownloadDir string                 `yaml:"download_dir"`
}

type ListingsConfig struct {
	StartURL        string         `yaml:"start_url"`
	LoadTime        time.Duration  `yaml:"load_time"`
	ClickTime       time.Duration  `yaml:"click_time"`
	NextPage        SelectorConfig `yaml:"next_page"`
	ListingSelector string         `yaml:"listing_selector"`
	URLSelector     string         `yaml:"url_selector"`
	URLAttribute    string         `yaml:"url_attribute"`
	HostSelector    string         `yaml:"host_selector"`
	HostnameClass   string         `yaml:"hostname_class"`
	PermitClass     string         `yaml:"permit_class"`
	CSVHeaders      []string       `yaml:"csv_headers"`
	Filename        string         `yaml:"filename"`
	OutputDir       string         `yaml:"output_dir"`
	Fetcher         string         `yaml:"fetcher"`
	FollowPatterns  []string       `yaml:"follow_patterns"`
	ExcludePatterns []string       `yaml:"exclude_patterns"`
	MaxListings     int            `yaml:"max_listings"`
}

type RegistryConfig struct {
	URL                   string         `yaml:"url"`
	Activities            []string       `yaml:"activities"`
	LoadTime              time.Duration  `yaml:"load_time"`
	ClickTime             time.Duration  `yaml:"click_time"`
	Activity              SelectorConfig `yaml:"activity"`
	Province              SelectorConfig `yaml:"province"`
	ProvinceName          string         `yaml:"province_name"`
	Municipality          SelectorConfig `yaml:"municipality"`
	MunicipalityName      string         `yaml:"municipality_name"`
	Search                SelectorConfig `yaml:"search"`
	Excel                 SelectorConfig `yaml:"excel"`
	ExportedFilename      string         `yaml:"exported_filename"`
	ResultsWaitFactor     int            `yaml:"results_wait_factor"`
	DownloadTimeoutFactor int            `yaml:"download_timeout_factor"`
	FrameIndex            *int           `yaml:"frame_index"`
	PollInterval          time.Duration  `yaml:"poll_interval"`
}

type HTTPConfig struct {
	UserAgent        string        `yaml:"user_agent"`
	RatePerSecond    float64       `yaml:"rate_per_second"`
	Burst            int           `yaml:"burst"`
	Timeout          time.Duration `yaml:"timeout"`
	RespectRobots    *bool         `yaml:"respect_robots"`
	BypassCloudflare bool          `yaml:"bypass_cloudflare"`
}

type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Listings string `yaml:"listings"`
		Exports  string `yaml:"exports"`
	} `yaml:"collections"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Listings ListingsConfig `yaml:"listings"`
	Registry RegistryConfig `yaml:"registry"`
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads a YAML file, fills every unset option with its default,
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if frameSwitchDisabled(data) {
		none := -1
		cfg.Registry.FrameIndex = &none
	}
	return finish(&cfg)
}

// frameSwitchDisabled reports an explicit "frame_index: null". yaml decodes
// null and a missing key to the same nil pointer, which defaults would fill.
func frameSwitchDisabled(data []byte) bool {
	var raw struct {
		Registry map[string]interface{} `yaml:"registry"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}
	v, ok := raw.Registry["frame_index"]
	return ok && v == nil
}

// Load behaves like LoadConfig but falls back to the defaults when path is
// empty or the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		return finish(&Config{})
	}
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return finish(&Config{})
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads a .env file if present and overrides options from the
// TOURISM_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if v := os.Getenv("TOURISM_BROWSER"); v != "" {
		c.Browser.Name = v
	}
	if v := os.Getenv("TOURISM_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TOURISM_HEADLESS: %w", err)
		}
		c.Browser.Headless = &headless
	}
	if v := os.Getenv("TOURISM_DOWNLOAD_DIR"); v != "" {
		c.Browser.DownloadDir = v
	}
	if v := os.Getenv("TOURISM_DB_CONNECTION"); v != "" {
		c.DB.Connection = v
	}
	if v := os.Getenv("TOURISM_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

var browserNames = map[string]bool{
	"chrome":            true,
	"firefox":           true,
	"edge":              true,
	"internet explorer": true,
	"safari":            true,
}

var selectorKinds = map[string]bool{"class": true, "css": true, "xpath": true}

// Validate rejects configurations the pipelines cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	checkSelector := func(name string, s SelectorConfig) {
		check(selectorKinds[s.By], "%s: unknown selector kind %q", name, s.By)
		check(strings.TrimSpace(s.Value) != "", "%s: empty selector", name)
	}

	check(browserNames[strings.ToLower(c.Browser.Name)], "browser.name: %q not supported", c.Browser.Name)

	l := c.Listings
	check(l.LoadTime > 0, "listings.load_time must be positive")
	check(l.ClickTime > 0, "listings.click_time must be positive")
	checkSelector("listings.next_page", l.NextPage)
	check(l.ListingSelector != "", "listings.listing_selector is empty")
	check(l.URLSelector != "", "listings.url_selector is empty")
	check(l.URLAttribute != "", "listings.url_attribute is empty")
	check(l.HostSelector != "", "listings.host_selector is empty")
	check(l.HostnameClass != "", "listings.hostname_class is empty")
	check(l.PermitClass != "", "listings.permit_class is empty")
	check(l.Fetcher == "browser" || l.Fetcher == "http", "listings.fetcher: %q must be browser or http", l.Fetcher)
	check(l.MaxListings >= 0, "listings.max_listings must not be negative")
	for _, p := range append(append([]string{}, l.FollowPatterns...), l.ExcludePatterns...) {
		_, err := regexp.Compile(p)
		check(err == nil, "listings pattern %q: %v", p, err)
	}

	r := c.Registry
	check(r.URL != "", "registry.url is empty")
	check(r.LoadTime > 0, "registry.load_time must be positive")
	check(r.ClickTime > 0, "registry.click_time must be positive")
	checkSelector("registry.activity", r.Activity)
	checkSelector("registry.province", r.Province)
	checkSelector("registry.municipality", r.Municipality)
	checkSelector("registry.search", r.Search)
	checkSelector("registry.excel", r.Excel)
	check(r.ExportedFilename != "", "registry.exported_filename is empty")
	check(r.ResultsWaitFactor >= 1, "registry.results_wait_factor must be at least 1")
	check(r.DownloadTimeoutFactor >= 1, "registry.download_timeout_factor must be at least 1")
	check(r.PollInterval > 0, "registry.poll_interval must be positive")

	check(c.HTTP.RatePerSecond > 0, "http.rate_per_second must be positive")
	check(c.HTTP.Burst > 0, "http.burst must be positive")

	return errors.Join(errs...)
}

// IsHeadless reports the effective headless flag.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// FollowsRobots reports whether the HTTP fetcher consults robots.txt.
func (h HTTPConfig) FollowsRobots() bool {
	return h.RespectRobots == nil || *h.RespectRobots
}

// FrameIndexOrNone returns the registry frame to switch into, or -1.
func (r RegistryConfig) FrameIndexOrNone() int {
	if r.FrameIndex == nil || *r.FrameIndex < 0 {
		return -1
	}
	return *r.FrameIndex
}
