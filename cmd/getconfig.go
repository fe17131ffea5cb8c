package main

import (
	"fmt"
	"os"

	"github.com/aceeric/imgcache/impl/cmdline"
	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/transform"
)

// getCfg builds the global configuration and returns the sub-command to run. Without
// '--config-file' the parsed command line, defaults included, is the configuration.
// With it, the file is loaded and then merged so that a value typed on the command
// line beats the file, and the file beats a command line default. The image hosts and
// the server's own TLS can only come from the file.
//
// The command line validates its own flags, so only a merged configuration needs
// checking afterward.
func getCfg() (string, error) {
	fromCmdline, cfg, err := cmdline.Parse()
	if err != nil {
		return "", err
	}
	if !fromCmdline.ConfigFile {
		config.Set(cfg)
		return fromCmdline.Command, nil
	}
	if err := config.Load(cfg.ConfigFile); err != nil {
		return "", err
	}
	config.Merge(fromCmdline, cfg)
	if err := checkFileValues(); err != nil {
		return "", fmt.Errorf("configuration file %s: %w", cfg.ConfigFile, err)
	}
	return fromCmdline.Command, nil
}

// checkFileValues checks the settings a configuration file can supply that have
// command line validators. A zero max dimension means the default.
func checkFileValues() error {
	if md := config.GetMaxDimension(); md < 0 || md > transform.MaxDimensionLimit {
		return fmt.Errorf("maxDimension must be between 1 and %d, got %d", transform.MaxDimensionLimit, md)
	}
	if root := config.GetFileRoot(); root != "" {
		if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
			return fmt.Errorf("fileRoot %s is not a directory", root)
		}
	}
	return nil
}
