package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultFeedURL is the ArcGIS query returning every On-Sale Liquor license as GeoJSON.
const DefaultFeedURL = "https://services.arcgis.com/afSMGVsC7QlRK1kZ/arcgis/rest/services/On_Sale_Liquor/FeatureServer/0/query?outFields=*&where=1%3D1&f=geojson"

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL       string
	FeedTimeout   time.Duration
	WardShapefile string

	Endorsement    string
	OutputDir      string
	PlotFormat     string
	ServeDashboard bool
	PlotCacheSize  int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka sink; disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether derived records should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FEED_TIMEOUT", "30s"))
	if err != nil || feedTimeout <= 0 {
		return nil, errors.New("invalid FEED_TIMEOUT")
	}

	serve, err := strconv.ParseBool(sharedcfg.EnvOrDefault("SERVE_DASHBOARD", "true"))
	if err != nil {
		return nil, errors.New("invalid SERVE_DASHBOARD")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("PLOT_CACHE_SIZE", "32"))
	if err != nil || cacheSize <= 0 {
		return nil, errors.New("invalid PLOT_CACHE_SIZE")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		FeedURL:         sharedcfg.EnvOrDefault("FEED_URL", DefaultFeedURL),
		FeedTimeout:     feedTimeout,
		WardShapefile:   sharedcfg.EnvOrDefault("WARD_SHAPEFILE", "data/City_Council_Wards-shp.zip"),
		Endorsement:     sharedcfg.EnvOrDefault("ENDORSEMENT", "Wine"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "out"),
		PlotFormat:      strings.ToLower(sharedcfg.EnvOrDefault("PLOT_FORMAT", "svg")),
		ServeDashboard:  serve,
		PlotCacheSize:   cacheSize,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "liquor-licenses"),
	}

	if u, err := url.Parse(cfg.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid FEED_URL %q", cfg.FeedURL)
	}
	if cfg.PlotFormat != "svg" && cfg.PlotFormat != "png" {
		return nil, fmt.Errorf("invalid PLOT_FORMAT %q: want svg or png", cfg.PlotFormat)
	}

	return cfg, nil
}
