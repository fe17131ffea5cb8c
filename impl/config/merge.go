package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default port is 8080 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	mu.Lock()
	defer mu.Unlock()
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.CachePath || config.CachePath == "" {
		config.CachePath = cfg.CachePath
	}
	if fromCmdline.MemCacheSize || config.MemCacheSize == 0 {
		config.MemCacheSize = cfg.MemCacheSize
	}
	if fromCmdline.PreloadFile || config.PreloadFile == "" {
		config.PreloadFile = cfg.PreloadFile
	}
	if fromCmdline.Port || config.Port == 0 {
		config.Port = cfg.Port
	}
	if fromCmdline.Health || config.Health == 0 {
		config.Health = cfg.Health
	}
	if fromCmdline.Metrics || config.Metrics == 0 {
		config.Metrics = cfg.Metrics
	}
	if fromCmdline.FetchTimeout || config.FetchTimeout == 0 {
		config.FetchTimeout = cfg.FetchTimeout
	}
	if fromCmdline.MipmapMaxSize || config.MipmapMaxSize == 0 {
		config.MipmapMaxSize = cfg.MipmapMaxSize
	}
	if fromCmdline.Concurrency || config.Concurrency == 0 {
		config.Concurrency = cfg.Concurrency
	}
	if fromCmdline.MaxDimension || config.MaxDimension == 0 {
		config.MaxDimension = cfg.MaxDimension
	}
	if fromCmdline.FileRoot || config.FileRoot == "" {
		config.FileRoot = cfg.FileRoot
	}
	if fromCmdline.PruneConfig || config.PruneConfig == (PruneConfig{}) {
		config.PruneConfig = cfg.PruneConfig
	}
	if fromCmdline.ListConfig || config.ListConfig == (ListConfig{}) {
		config.ListConfig = cfg.ListConfig
	}
	// the fetch config has a slice so it is merged as a whole only when given
	if fromCmdline.FetchConfig || config.FetchConfig.Uri == "" {
		config.FetchConfig = cfg.FetchConfig
	}
}
