package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// authCfg holds basic auth user/pass for an image host
type authCfg struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// tlsCfg holds client TLS configuration for an image host
type tlsCfg struct {
	Cert               string `yaml:"cert"`
	Key                string `yaml:"key"`
	CA                 string `yaml:"ca"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// HostConfig combines authCfg and tlsCfg and configures the transport for access
// to one image host. Name is a host, or host:port, as it appears in image urls.
type HostConfig struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Auth        authCfg `yaml:"auth"`
	Tls         tlsCfg  `yaml:"tls"`
	Scheme      string  `yaml:"scheme"`
}

// ServerTlsConfig configures the image server's own TLS. ClientAuth is 'none' or
// 'verify'.
type ServerTlsConfig struct {
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
	CA         string `yaml:"ca"`
	ClientAuth string `yaml:"clientAuth"`
}

// PruneConfig configures the prune sub-command. Type 'date' removes entries last
// written before Expr ('2006-01-02T15:04:05'), type 'size' removes the oldest entries
// until the cache is no larger than Expr bytes (humanized sizes like '2GB' are fine).
type PruneConfig struct {
	Type   string `yaml:"type"`
	Expr   string `yaml:"expr"`
	DryRun bool   `yaml:"dryRun"`
}

// ListConfig configures the list sub-command. Expr is a key prefix.
type ListConfig struct {
	Header bool   `yaml:"header"`
	Expr   string `yaml:"expr"`
}

// FetchConfig configures the fetch sub-command, which runs one request through the
// engine and writes the encoded bitmap to Output.
type FetchConfig struct {
	Uri        string   `yaml:"uri"`
	Method     string   `yaml:"method"`
	Width      int64    `yaml:"width"`
	Height     int64    `yaml:"height"`
	ScaleMode  string   `yaml:"scaleMode"`
	Transforms []string `yaml:"transforms"`
	Mipmap     bool     `yaml:"mipmap"`
	NoCache    bool     `yaml:"noCache"`
	NoAnimate  bool     `yaml:"noAnimate"`
	Output     string   `yaml:"output"`
}

// Configuration represents the totality of configuration knobs and dials.
type Configuration struct {
	LogLevel      string          `yaml:"logLevel"`
	LogFile       string          `yaml:"logFile"`
	ConfigFile    string          `yaml:"configFile"`
	CachePath     string          `yaml:"cachePath"`
	MemCacheSize  int64           `yaml:"memCacheSize"`
	PreloadFile   string          `yaml:"preloadFile"`
	Port          int64           `yaml:"port"`
	Health        int64           `yaml:"health"`
	Metrics       int64           `yaml:"metrics"`
	FetchTimeout  int64           `yaml:"fetchTimeout"`
	MipmapMaxSize int64           `yaml:"mipmapMaxSize"`
	Concurrency   int64           `yaml:"concurrency"`
	MaxDimension  int64           `yaml:"maxDimension"`
	FileRoot      string          `yaml:"fileRoot"`
	Hosts         []HostConfig    `yaml:"hosts"`
	ServerTlsCfg  ServerTlsConfig `yaml:"serverTlsConfig"`
	PruneConfig   PruneConfig     `yaml:"pruneConfig"`
	ListConfig    ListConfig      `yaml:"listConfig"`
	FetchConfig   FetchConfig     `yaml:"fetchConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command       string
	LogLevel      bool
	LogFile       bool
	ConfigFile    bool
	CachePath     bool
	MemCacheSize  bool
	PreloadFile   bool
	Port          bool
	Health        bool
	Metrics       bool
	FetchTimeout  bool
	MipmapMaxSize bool
	Concurrency   bool
	MaxDimension  bool
	FileRoot      bool
	PruneConfig   bool
	ListConfig    bool
	FetchConfig   bool
}

var (
	config Configuration
	// mu guards the hosts, which can be reloaded while serving
	mu sync.RWMutex
)

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetCachePath() string {
	return config.CachePath
}

func SetCachePath(newVal string) {
	config.CachePath = newVal
}

func GetMemCacheSize() int {
	return int(config.MemCacheSize)
}

func GetPreloadFile() string {
	return config.PreloadFile
}

func GetPort() int64 {
	return config.Port
}

func GetHealth() int64 {
	return config.Health
}

func GetMetrics() int64 {
	return config.Metrics
}

func GetFetchTimeout() int64 {
	return config.FetchTimeout
}

func GetMipmapMaxSize() int {
	return int(config.MipmapMaxSize)
}

func GetConcurrency() int {
	return int(config.Concurrency)
}

func GetMaxDimension() int {
	return int(config.MaxDimension)
}

// GetFileRoot is the directory the server reads 'file://' images from. Empty means
// the server refuses them.
func GetFileRoot() string {
	return config.FileRoot
}

func GetHosts() []HostConfig {
	mu.RLock()
	defer mu.RUnlock()
	return config.Hosts
}

func GetServerTlsCfg() ServerTlsConfig {
	return config.ServerTlsCfg
}

func GetPruneConfig() PruneConfig {
	return config.PruneConfig
}

func GetListConfig() ListConfig {
	return config.ListConfig
}

func GetFetchConfig() FetchConfig {
	return config.FetchConfig
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	contents, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading configuration file %s: %w", configFile, err)
	}
	if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file %s: %w", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	mu.RLock()
	defer mu.RUnlock()
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
	clearHostOpts()
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	}
	Set(cfg)
	return nil
}
