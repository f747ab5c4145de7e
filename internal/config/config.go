package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mlinder314/runscrape/internal/extractor"
	"github.com/mlinder314/runscrape/internal/tracks"

	"gopkg.in/yaml.v3"
)

const (
	DriverChrome = "chrome"
	DriverHTTP   = "http"
)

type Config struct {
	URL    string `yaml:"url"`
	Output string `yaml:"output"`
	Format string `yaml:"format"`

	Driver        string        `yaml:"driver"`
	Headless      bool          `yaml:"headless"`
	DisplayWidth  int           `yaml:"display_width"`
	DisplayHeight int           `yaml:"display_height"`
	ChromePath    string        `yaml:"chrome_path"`
	Timeout       time.Duration `yaml:"timeout"`
	PageLoadDelay time.Duration `yaml:"page_load_delay"`
	BlockMedia    bool          `yaml:"block_media"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	Progress bool `yaml:"progress"`
	Debug    bool `yaml:"debug"`
	LogJSON  bool `yaml:"log_json"`

	// GoalKm is the yearly distance the tracks view measures progress against.
	GoalKm float64 `yaml:"goal_km"`
	// PlanStart is the first day of the training schedule, as 2006-01-02.
	PlanStart string `yaml:"plan_start"`

	Selectors extractor.Selectors `yaml:"selectors"`
}

type Options struct {
	IgnoreConfig  bool
	Debug         bool
	URL           string
	Output        string
	Format        string
	Driver        string
	Headful       bool
	ChromePath    string
	Timeout       time.Duration
	PageLoadDelay time.Duration
	Cookie        string
	CookieFile    string
	UserAgent     string
	Progress      bool
	GoalKm        float64
	PlanStart     string
}

func DefaultConfig() *Config {
	return &Config{
		URL:           extractor.DefaultURL,
		Output:        "tracks.csv",
		Format:        string(tracks.FormatRaw),
		Driver:        DriverChrome,
		Headless:      true,
		DisplayWidth:  1024,
		DisplayHeight: 768,
		Timeout:       60 * time.Second,
		PageLoadDelay: 2 * time.Second,
		BlockMedia:    true,
		GoalKm:        tracks.DefaultGoalKm,
		PlanStart:     tracks.DefaultPlanStart.Format(time.DateOnly),
		Selectors:     extractor.DefaultSelectors(),
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadYAML reads a profile over the defaults, so keys missing from the file
// keep their default values.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		return cfg, "(ignored config)", normalize(cfg)
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		return cfg, "(default config in memory)\nRun `runscrape config init` to create an actual config\n", normalize(cfg)
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	if err := normalize(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", activePath, err)
	}

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.URL != "" {
		c.URL = o.URL
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.Driver != "" {
		c.Driver = o.Driver
	}
	if o.Headful {
		c.Headless = false
	}
	if o.ChromePath != "" {
		c.ChromePath = o.ChromePath
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.PageLoadDelay != 0 {
		c.PageLoadDelay = o.PageLoadDelay
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Progress {
		c.Progress = true
	}
	if o.Debug {
		c.Debug = true
	}
	if o.GoalKm != 0 {
		c.GoalKm = o.GoalKm
	}
	if o.PlanStart != "" {
		c.PlanStart = o.PlanStart
	}
}

func normalize(c *Config) error {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.DisplayWidth <= 0 {
		c.DisplayWidth = d.DisplayWidth
	}
	if c.DisplayHeight <= 0 {
		c.DisplayHeight = d.DisplayHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PageLoadDelay < 0 {
		c.PageLoadDelay = 0
	}
	if c.GoalKm <= 0 {
		c.GoalKm = d.GoalKm
	}
	if c.PlanStart == "" {
		c.PlanStart = d.PlanStart
	}
	c.Selectors = c.Selectors.WithDefaults()

	if _, err := tracks.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := c.PlanStartDate(); err != nil {
		return err
	}
	if c.Driver != DriverChrome && c.Driver != DriverHTTP {
		return fmt.Errorf("unknown driver %q (want %s or %s)", c.Driver, DriverChrome, DriverHTTP)
	}
	return c.Selectors.Validate()
}

func (c *Config) PlanStartDate() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, c.PlanStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("plan_start %q: want YYYY-MM-DD", c.PlanStart)
	}
	return t, nil
}

func (c *Config) Print(w io.Writer) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p(" -url: %s\n", c.URL)
	p(" -output: %s\n", c.Output)
	if c.Format != "" {
		p(" -format: %s\n", c.Format)
	}
	p(" -driver: %s\n", c.Driver)
	p(" -headless: %t\n", c.Headless)
	if !c.Headless {
		p(" -display: %dx%d\n", c.DisplayWidth, c.DisplayHeight)
	}
	if c.ChromePath != "" {
		p(" -chrome_path: %s\n", c.ChromePath)
	}
	p(" -timeout: %s\n", c.Timeout)
	if c.PageLoadDelay > 0 {
		p(" -page_load_delay: %s\n", c.PageLoadDelay)
	}
	if c.UserAgent != "" {
		p(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CookieFile != "" {
		p(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.Progress {
		p(" -progress: %t\n", c.Progress)
	}
	p(" -goal_km: %.0f\n", c.GoalKm)
	p(" -plan_start: %s\n", c.PlanStart)
	if c.Debug {
		p(" -debug: %t\n", c.Debug)
	}
	if c.Selectors != extractor.DefaultSelectors() {
		s := c.Selectors
		p(" -selectors: .%s %s %s [%s] .%s .%s .%s\n",
			s.ContainerClass, s.BodyTag, s.RowTag, s.IDAttr, s.DateClass, s.DistanceClass, s.DurationClass)
	}
}
