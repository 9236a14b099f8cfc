package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultFeedURL, cfg.FeedURL)
	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "data/City_Council_Wards-shp.zip", cfg.WardShapefile)
	assert.Equal(t, "Wine", cfg.Endorsement)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "svg", cfg.PlotFormat)
	assert.True(t, cfg.ServeDashboard)
	assert.Equal(t, 32, cfg.PlotCacheSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "liquor-licenses", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FEED_URL", "http://localhost:9000/feed.geojson")
	t.Setenv("FEED_TIMEOUT", "5s")
	t.Setenv("WARD_SHAPEFILE", "/data/wards.zip")
	t.Setenv("ENDORSEMENT", "Sunday Sales")
	t.Setenv("OUTPUT_DIR", "/tmp/plots")
	t.Setenv("PLOT_FORMAT", "PNG")
	t.Setenv("SERVE_DASHBOARD", "false")
	t.Setenv("PLOT_CACHE_SIZE", "8")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "licenses")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/feed.geojson", cfg.FeedURL)
	assert.Equal(t, 5*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "/data/wards.zip", cfg.WardShapefile)
	assert.Equal(t, "Sunday Sales", cfg.Endorsement)
	assert.Equal(t, "/tmp/plots", cfg.OutputDir)
	assert.Equal(t, "png", cfg.PlotFormat)
	assert.False(t, cfg.ServeDashboard)
	assert.Equal(t, 8, cfg.PlotCacheSize)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "licenses", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidFeedTimeout(t *testing.T) {
	t.Setenv("FEED_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_TIMEOUT")
}

func TestLoad_InvalidFeedURL(t *testing.T) {
	t.Setenv("FEED_URL", "not a url")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_URL")
}

func TestLoad_InvalidPlotFormat(t *testing.T) {
	t.Setenv("PLOT_FORMAT", "gif")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLOT_FORMAT")
}

func TestLoad_InvalidServeDashboard(t *testing.T) {
	t.Setenv("SERVE_DASHBOARD", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVE_DASHBOARD")
}

func TestLoad_InvalidPlotCacheSize(t *testing.T) {
	t.Setenv("PLOT_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLOT_CACHE_SIZE")
}
