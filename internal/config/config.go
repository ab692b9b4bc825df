package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// Valid configuration values
var (
	validTimeResolutions = map[string]bool{
		"": true, "1m": true, "5m": true, "1h": true,
	}
	validTimeAlignments = map[string]bool{
		"floor": true, "ceil": true, "round": true,
	}
	validXAxes = map[string]bool{
		"step": true, "wall": true, "relative": true,
	}
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
)

type Config struct {
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string

	// TimeResolution buckets printed metric history timestamps; empty keeps
	// them as reported.
	TimeResolution string
	TimeAlignment  string
	// XAxis is the default x axis of metric history and plot links.
	XAxis string

	ViewStateDir     string
	HistoryCacheSize int
	HistoryFetchQPS  float64
	LogLevel         string
}

func New() *Config {
	return &Config{
		TrackingURI:      viper.GetString("tracking_uri"),
		ExperimentID:     viper.GetString("experiment_id"),
		DatabricksHost:   viper.GetString("databricks_host"),
		DatabricksToken:  viper.GetString("databricks_token"),
		TimeResolution:   viper.GetString("time_resolution"),
		TimeAlignment:    viper.GetString("time_alignment"),
		XAxis:            viper.GetString("x_axis"),
		ViewStateDir:     viper.GetString("view_state_dir"),
		HistoryCacheSize: viper.GetInt("history_cache_size"),
		HistoryFetchQPS:  viper.GetFloat64("history_fetch_qps"),
		LogLevel:         viper.GetString("log_level"),
	}
}

func (c *Config) Validate() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}

	if !validTimeResolutions[c.TimeResolution] {
		return fmt.Errorf("invalid time resolution: %s (valid: 1m, 5m, 1h)", c.TimeResolution)
	}

	if !validTimeAlignments[c.TimeAlignment] {
		return fmt.Errorf("invalid time alignment: %s (valid: floor, ceil, round)", c.TimeAlignment)
	}

	if !validXAxes[c.XAxis] {
		return fmt.Errorf("invalid x axis: %s (valid: step, wall, relative)", c.XAxis)
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.HistoryCacheSize <= 0 {
		return fmt.Errorf("history cache size must be positive: %d", c.HistoryCacheSize)
	}

	if c.HistoryFetchQPS <= 0 {
		return fmt.Errorf("history fetch qps must be positive: %g", c.HistoryFetchQPS)
	}

	return nil
}

// RequireExperiment returns the configured experiment id or an error
// telling the user how to set one.
func (c *Config) RequireExperiment() (string, error) {
	if c.ExperimentID == "" {
		return "", fmt.Errorf("experiment ID is required (use --experiment-id or MLFLOW_EXPERIMENT_ID)")
	}
	return c.ExperimentID, nil
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	// Check for databricks:// protocol
	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	// Check for Databricks URLs
	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

// extractHostFromURL extracts the hostname from a URL
func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	// Remove any path components
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// isDatabricksHost checks if a hostname belongs to Databricks
func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	// Remove any trailing slashes or paths
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
