package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = ".campwatch.json"
	StateFileName  = ".campwatch-state.json"
	LogFileName    = ".campwatch.log"
)

// Logical endpoint names recognised in the endpoints map.
const (
	EndpointCampaignDetail     = "campaign-detail"
	EndpointEscrowTransactions = "escrow-transactions"
	EndpointEscrowBalance      = "escrow-balance"
	EndpointPriceQuote         = "price-quote"
	EndpointQR                 = "qr"
)

// EndpointNames lists every endpoint key a complete configuration must carry.
var EndpointNames = []string{
	EndpointCampaignDetail,
	EndpointEscrowTransactions,
	EndpointEscrowBalance,
	EndpointPriceQuote,
	EndpointQR,
}

// ProxyHeader is an opaque header sent on every backend request. Tunnels such
// as ngrok inject a warning page unless it is present.
type ProxyHeader struct {
	Name  string `json:"name" yaml:"name" env:"NAME"`
	Value string `json:"value" yaml:"value" env:"VALUE"`
}

// Config holds all settings for a campwatch run.
type Config struct {
	ContractAddress       string            `json:"contract_address" yaml:"contract_address" env:"CONTRACT_ADDRESS"`
	WalletAddress         string            `json:"wallet_address,omitempty" yaml:"wallet_address,omitempty" env:"WALLET_ADDRESS"`
	Endpoints             map[string]string `json:"endpoints" yaml:"endpoints"`
	ProxyHeader           ProxyHeader       `json:"proxy_header" yaml:"proxy_header" envPrefix:"PROXY_HEADER_"`
	PriceAsset            string            `json:"price_asset" yaml:"price_asset" env:"PRICE_ASSET"`
	DefaultPrice          float64           `json:"default_price" yaml:"default_price" env:"DEFAULT_PRICE"`
	PollIntervalSeconds   int               `json:"poll_interval_seconds" yaml:"poll_interval_seconds" env:"POLL_INTERVAL_SECONDS"`
	RequestTimeoutSeconds int               `json:"request_timeout_seconds" yaml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`
	ExplorerURL           string            `json:"explorer_url" yaml:"explorer_url" env:"EXPLORER_URL"`
	LaunchpadURL          string            `json:"launchpad_url" yaml:"launchpad_url" env:"LAUNCHPAD_URL"`
	SolanaRPCURL          string            `json:"solana_rpc_url,omitempty" yaml:"solana_rpc_url,omitempty" env:"SOLANA_RPC_URL"`
	ThemePath             string            `json:"theme_path,omitempty" yaml:"theme_path,omitempty" env:"THEME_PATH"`
	LogFile               string            `json:"log_file,omitempty" yaml:"log_file,omitempty" env:"LOG_FILE"`
}

// envOverrides carries the endpoint map, which arrives as
// CAMPWATCH_ENDPOINTS=name|url,name|url since URLs contain colons.
type envOverrides struct {
	Endpoints map[string]string `env:"ENDPOINTS" envSeparator:"," envKeyValSeparator:"|"`
}

// PollInterval returns the balance refresh period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Endpoint returns the base URL configured for a logical endpoint name.
func (c Config) Endpoint(name string) string {
	return strings.TrimRight(c.Endpoints[name], "/")
}

// DefaultConfig returns a configuration pointing at a local backend.
func DefaultConfig() Config {
	return Config{
		Endpoints: map[string]string{
			EndpointCampaignDetail:     "http://localhost:8000/api/campaign-detail",
			EndpointEscrowTransactions: "http://localhost:8000/api/escrow-transactions",
			EndpointEscrowBalance:      "http://localhost:8000/api/escrow-balance",
			EndpointPriceQuote:         "https://api.coingecko.com/api/v3",
			EndpointQR:                 "http://localhost:8000/api/campaigns",
		},
		PriceAsset:            "solana",
		DefaultPrice:          180,
		PollIntervalSeconds:   10,
		RequestTimeoutSeconds: 15,
		ExplorerURL:           "https://solscan.io",
		LaunchpadURL:          "https://pump.fun/coin",
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// DefaultStatePath is where the theme flag lives when theme_path is unset.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return StateFileName
	}
	return filepath.Join(home, StateFileName)
}

// DefaultLogPath is where TUI runs log when log_file is unset.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return LogFileName
	}
	return filepath.Join(home, LogFileName)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfigFromFile reads the file at path, falling back to defaults when it
// does not exist, then applies CAMPWATCH_* environment overrides.
func LoadConfigFromFile(path string) (Config, error) {
	cfg, err := ReadConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	return ApplyEnv(cfg)
}

// ReadConfigFile reads the file at path without environment overrides. Use it
// when the result is written back, so overrides never end up on disk.
func ReadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()

	if isYAML(path) {
		return LoadYAML(f)
	}
	return LoadConfig(f)
}

// fileConfig uses pointers so unset fields can be told apart from zero values.
type fileConfig struct {
	ContractAddress       string            `json:"contract_address" yaml:"contract_address"`
	WalletAddress         string            `json:"wallet_address" yaml:"wallet_address"`
	Endpoints             map[string]string `json:"endpoints" yaml:"endpoints"`
	ProxyHeader           *ProxyHeader      `json:"proxy_header" yaml:"proxy_header"`
	PriceAsset            *string           `json:"price_asset" yaml:"price_asset"`
	DefaultPrice          *float64          `json:"default_price" yaml:"default_price"`
	PollIntervalSeconds   *int              `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	RequestTimeoutSeconds *int              `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	ExplorerURL           *string           `json:"explorer_url" yaml:"explorer_url"`
	LaunchpadURL          *string           `json:"launchpad_url" yaml:"launchpad_url"`
	SolanaRPCURL          string            `json:"solana_rpc_url" yaml:"solana_rpc_url"`
	ThemePath             string            `json:"theme_path" yaml:"theme_path"`
	LogFile               string            `json:"log_file" yaml:"log_file"`
}

func LoadConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return Config{}, err
	}
	return fc.merge(), nil
}

func LoadYAML(r io.Reader) (Config, error) {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return Config{}, err
	}
	return fc.merge(), nil
}

func (fc fileConfig) merge() Config {
	cfg := DefaultConfig()
	cfg.ContractAddress = strings.TrimSpace(fc.ContractAddress)
	cfg.WalletAddress = strings.TrimSpace(fc.WalletAddress)
	for name, u := range fc.Endpoints {
		cfg.Endpoints[name] = strings.TrimSpace(u)
	}
	if fc.ProxyHeader != nil {
		cfg.ProxyHeader = *fc.ProxyHeader
	}
	if fc.PriceAsset != nil {
		cfg.PriceAsset = *fc.PriceAsset
	}
	if fc.DefaultPrice != nil {
		cfg.DefaultPrice = *fc.DefaultPrice
	}
	if fc.PollIntervalSeconds != nil {
		cfg.PollIntervalSeconds = *fc.PollIntervalSeconds
	}
	if fc.RequestTimeoutSeconds != nil {
		cfg.RequestTimeoutSeconds = *fc.RequestTimeoutSeconds
	}
	if fc.ExplorerURL != nil {
		cfg.ExplorerURL = *fc.ExplorerURL
	}
	if fc.LaunchpadURL != nil {
		cfg.LaunchpadURL = *fc.LaunchpadURL
	}
	cfg.SolanaRPCURL = fc.SolanaRPCURL
	cfg.ThemePath = fc.ThemePath
	cfg.LogFile = fc.LogFile
	return cfg
}

// ApplyEnv overlays CAMPWATCH_* environment variables onto cfg.
func ApplyEnv(cfg Config) (Config, error) {
	opts := env.Options{Prefix: "CAMPWATCH_"}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	var extra envOverrides
	if err := env.ParseWithOptions(&extra, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(extra.Endpoints) > 0 && cfg.Endpoints == nil {
		cfg.Endpoints = make(map[string]string)
	}
	for name, u := range extra.Endpoints {
		cfg.Endpoints[name] = u
	}
	return cfg, nil
}

// Validate reports every structural problem with cfg.
func (c Config) Validate() []string {
	var problems []string
	for _, name := range EndpointNames {
		raw, ok := c.Endpoints[name]
		if !ok || strings.TrimSpace(raw) == "" {
			problems = append(problems, fmt.Sprintf("endpoint %q is not configured", name))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("endpoint %q has invalid URL %q", name, raw))
		}
	}
	if c.PollIntervalSeconds <= 0 {
		problems = append(problems, "poll_interval_seconds must be positive")
	}
	if c.RequestTimeoutSeconds <= 0 {
		problems = append(problems, "request_timeout_seconds must be positive")
	}
	if (c.ProxyHeader.Name == "") != (c.ProxyHeader.Value == "") {
		problems = append(problems, "proxy_header needs both name and value")
	}
	return problems
}

func SaveConfig(cfg Config, path string) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("validation failed: %s", problems[0])
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
