package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	registryURL     string
	settingsFile    string
	mdnsEnable      bool
	mdnsName        string
	logMetricsEvery time.Duration
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":41234", "UDP listen address")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	registryURL := flag.String("registry-url", "", "Match backend base URL (overrides settings-file bDomain)")
	settingsFile := flag.String("settings-file", "settings.ini", "Path to the settings file carrying bDomain=\"...\" when -registry-url is unset")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Bonjour advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default mvsi-server-<hostname>)")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.registryURL = *registryURL
	cfg.settingsFile = *settingsFile
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.logMetricsEvery = *logMetricsEvery

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}

	if cfg.registryURL == "" {
		resolved, err := bDomainFromFile(cfg.settingsFile)
		if err != nil {
			fmt.Printf("registry-url not set and %s: %v\n", cfg.settingsFile, err)
			return nil, *showVersion
		}
		cfg.registryURL = resolved
	}

	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// bDomainFromFile reads the bDomain="..." line out of a settings file, the
// way the original locates its match-backend endpoint.
func bDomainFromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "bDomain=") {
			return strings.Trim(line[len("bDomain="):], `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("bDomain not found in %s", path)
}

// validate performs basic semantic validation of the parsed configuration.
// It does not dial the registry or bind the socket, only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.registryURL == "" {
		return errors.New("registry-url must not be empty")
	}
	return nil
}

// applyEnvOverrides maps MVSI_SERVER_* environment variables to config
// fields unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("MVSI_SERVER_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("MVSI_SERVER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("MVSI_SERVER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("MVSI_SERVER_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["registry-url"]; !ok {
		if v, ok := get("MVSI_SERVER_REGISTRY_URL"); ok && v != "" {
			c.registryURL = v
		}
	}
	if _, ok := set["settings-file"]; !ok {
		if v, ok := get("MVSI_SERVER_SETTINGS_FILE"); ok && v != "" {
			c.settingsFile = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("MVSI_SERVER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("MVSI_SERVER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("MVSI_SERVER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid MVSI_SERVER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}

// portFromAddr extracts the numeric port after the last colon of a bound
// "host:port" address (so bracketed IPv6 forms work too), returning 0 when
// that suffix is missing or not a number.
func portFromAddr(addr string) int {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		if p, err := strconv.Atoi(addr[i+1:]); err == nil {
			return p
		}
	}
	return 0
}
