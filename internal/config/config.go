package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/spf13/viper"
)

var (
	ErrEmptyToken    = errors.New("error getting PW_TELEGRAM_TOKEN: variable not specified or contains an empty string")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const envProd = "production"

type Config struct {
	Env        string // Env is the current environment: local, development, production.
	Storage    Storage
	Tg         Telegram
	Scheduler  Scheduler
	Extraction Extraction
	Browser    Browser
	RapidAPI   RapidAPI
	Platforms  map[models.Platform]Platform
}

type Storage struct {
	Driver      string // Driver is either sqlite or postgres.
	Path        string // Path is the SQLite database file.
	PostgresDSN string
}

type Telegram struct {
	Token   string        // Token is an unique telegram bot token.
	Timeout time.Duration // Timeout is a poller timeout duration.
}

type Scheduler struct {
	Spec        string
	RunOnStart  bool
	Workers     int
	ItemTimeout time.Duration
}

type Extraction struct {
	RenderTimeout time.Duration
	StaticTimeout time.Duration
	APITimeout    time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	StaticRPS     float64
}

type Browser struct {
	Bin      string
	Headless bool
}

type RapidAPI struct {
	Key     string
	Host    string
	Pincode string
}

// Platform holds the per-platform domain family, strategy order and selectors.
type Platform struct {
	Domains        []string
	Strategies     []string
	NameSelectors  []string
	PriceSelectors []string
	ImageSelectors []string
}

var platformDefaults = map[models.Platform]Platform{
	models.PlatformAmazon: {
		Domains:    []string{"amazon.in", "amazon.com"},
		Strategies: []string{"render", "static"},
		NameSelectors: []string{
			"#productTitle",
			".product-title",
			`h1[data-automation-id="product-title"]`,
			".a-size-large.product-title-word-break",
		},
		PriceSelectors: []string{
			".a-price .a-offscreen",
			".a-price-whole",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			".a-price-range .a-offscreen",
			`[data-a-size="l"] .a-offscreen`,
		},
		ImageSelectors: []string{
			"#imgTagWrapperId img",
			"#landingImage",
			"img[data-old-hires]",
			".a-dynamic-image",
		},
	},
	models.PlatformFlipkart: {
		Domains:        []string{"flipkart.com"},
		Strategies:     []string{"render", "api"},
		NameSelectors:  []string{"span.VU-ZEz", "span.B_NuCI", "h1 span"},
		PriceSelectors: []string{"div.Nx9bqj.CxhGGd", "div._30jeq3._16Jk6d", "div.Nx9bqj"},
		ImageSelectors: []string{"img.DByuf4", "img._396cs4", "img._2r_T1I"},
	},
}

// MustLoad loads the configuration and panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads the configuration from PW_-prefixed environment variables and an
// optional YAML file named by PW_CONFIG_PATH. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	// Automatically binds environment variables to config keys
	v.SetEnvPrefix("PW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("PW_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	setDefaults(v)

	if v.GetString("telegram.token") == "" {
		return nil, ErrEmptyToken
	}

	driver := strings.ToLower(v.GetString("storage.driver"))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	cfg := &Config{
		Env: v.GetString("env"),
		Storage: Storage{
			Driver:      driver,
			Path:        v.GetString("storage.path"),
			PostgresDSN: v.GetString("postgres.dsn"),
		},
		Tg: Telegram{
			Token:   v.GetString("telegram.token"),
			Timeout: v.GetDuration("telegram.timeout"),
		},
		Scheduler: Scheduler{
			Spec:        v.GetString("schedule"),
			RunOnStart:  v.GetBool("run_on_start"),
			Workers:     v.GetInt("workers"),
			ItemTimeout: v.GetDuration("item_timeout"),
		},
		Extraction: Extraction{
			RenderTimeout: v.GetDuration("render.timeout"),
			StaticTimeout: v.GetDuration("static.timeout"),
			APITimeout:    v.GetDuration("api.timeout"),
			RetryAttempts: v.GetInt("retry.attempts"),
			RetryBackoff:  v.GetDuration("retry.backoff"),
			StaticRPS:     v.GetFloat64("static.rps"),
		},
		Browser: Browser{
			Bin:      v.GetString("browser.bin"),
			Headless: v.GetBool("browser.headless"),
		},
		RapidAPI: RapidAPI{
			Key:     v.GetString("rapidapi.key"),
			Host:    v.GetString("rapidapi.host"),
			Pincode: v.GetString("rapidapi.pincode"),
		},
		Platforms: make(map[models.Platform]Platform, len(platformDefaults)),
	}

	for p := range platformDefaults {
		prefix := string(p) + "."
		cfg.Platforms[p] = Platform{
			Domains:        getList(v, prefix+"domains"),
			Strategies:     getList(v, prefix+"strategies"),
			NameSelectors:  getList(v, prefix+"selectors.name"),
			PriceSelectors: getList(v, prefix+"selectors.price"),
			ImageSelectors: getList(v, prefix+"selectors.image"),
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", envProd)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "./storage/pricewatch.db")
	v.SetDefault("telegram.timeout", "15s")
	v.SetDefault("schedule", "0 */6 * * *")
	v.SetDefault("run_on_start", v.GetString("env") != envProd)
	v.SetDefault("workers", 4)
	v.SetDefault("item_timeout", "2m")
	v.SetDefault("render.timeout", "30s")
	v.SetDefault("static.timeout", "10s")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("retry.attempts", 2)
	v.SetDefault("retry.backoff", "2s")
	v.SetDefault("static.rps", 1)
	v.SetDefault("browser.headless", true)
	v.SetDefault("rapidapi.host", "real-time-flipkart-data2.p.rapidapi.com")
	v.SetDefault("rapidapi.pincode", "400001")

	for p, def := range platformDefaults {
		prefix := string(p) + "."
		v.SetDefault(prefix+"domains", def.Domains)
		v.SetDefault(prefix+"strategies", def.Strategies)
		v.SetDefault(prefix+"selectors.name", def.NameSelectors)
		v.SetDefault(prefix+"selectors.price", def.PriceSelectors)
		v.SetDefault(prefix+"selectors.image", def.ImageSelectors)
	}
}

// getList reads a list that is ';'-separated in the environment and a
// sequence in the config file.
func getList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	var list []string
	for _, item := range strings.Split(raw, ";") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
