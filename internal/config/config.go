package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"fsaeinventory/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreEndpoint = "endpoint"
	StoreSheets   = "sheets"
	StoreNone     = "none"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Store      StoreConfig      `yaml:"store"`
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Google     GoogleConfig     `yaml:"google"`
	Redis      RedisConfig      `yaml:"redis"`
	Journal    JournalConfig    `yaml:"journal"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// StoreConfig selects where the inventory snapshot lives.
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// EndpointConfig describes the spreadsheet script endpoint.
type EndpointConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type InventoryConfig struct {
	SampleOnFailure bool          `yaml:"sample_on_failure"`
	ConfirmTTL      time.Duration `yaml:"confirm_ttl"`
	SampleItems     []models.Item `yaml:"sample_items"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreEndpoint:
		if c.Endpoint.URL == "" {
			return errors.New("endpoint url is required for store driver endpoint")
		}
	case StoreSheets:
		if c.Google.CredentialsFile == "" || c.Google.SpreadsheetID == "" {
			return errors.New("google credentials_file and spreadsheet_id are required for store driver sheets")
		}
	case StoreNone:
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	if c.Endpoint.MaxRetries < 0 {
		return errors.New("endpoint max_retries must not be negative")
	}

	return ValidateItems(c.Inventory.SampleItems)
}

func ValidateItems(items []models.Item) error {
	itemIDs := make(map[int64]bool)
	for _, item := range items {
		if item.ID <= 0 {
			return fmt.Errorf("item '%s' has invalid ID %d", item.Name, item.ID)
		}
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d has empty name", item.ID)
		}
		if item.Quantity < 0 || item.MinStock < 0 {
			return fmt.Errorf("item %d has negative quantity or min stock", item.ID)
		}
		if itemIDs[item.ID] {
			return fmt.Errorf("duplicate item ID found: %d", item.ID)
		}
		itemIDs[item.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "fsae-inventory"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.RateLimitRPS
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitBurst
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Без адреса таблицы работаем на демо-данных
	if c.Store.Driver == "" {
		switch {
		case c.Endpoint.URL != "":
			c.Store.Driver = StoreEndpoint
		case c.Google.SpreadsheetID != "":
			c.Store.Driver = StoreSheets
		default:
			c.Store.Driver = StoreNone
		}
	}

	if c.Endpoint.Timeout == 0 {
		c.Endpoint.Timeout = models.DefaultRequestTimeout * time.Second
	}
	if c.Endpoint.MaxRetries == 0 {
		c.Endpoint.MaxRetries = 1
	}
	if c.Endpoint.CacheTTL == 0 && c.Redis.Address != "" {
		c.Endpoint.CacheTTL = models.EndpointCacheTTL * time.Second
	}
	if c.Endpoint.InitialDelay == 0 {
		c.Endpoint.InitialDelay = time.Second
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = models.DefaultSheetName
	}
	if c.Inventory.ConfirmTTL == 0 {
		c.Inventory.ConfirmTTL = models.DefaultConfirmTTL * time.Second
	}
	if len(c.Inventory.SampleItems) == 0 {
		c.Inventory.SampleItems = models.SampleItems()
	}
	for i := range c.Inventory.SampleItems {
		c.Inventory.SampleItems[i].Refresh()
	}
}
