package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Watch watches the passed configuration file and reloads the host configuration
// whenever the file is written. Other settings are only read at startup. The directory
// is watched rather than the file so that editors that replace the file on save are
// handled. If 'onReload' is non-nil it is called after each successful reload. Watch
// returns when the context is done.
func Watch(ctx context.Context, configFile string, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(configFile)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(configFile) || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := reloadHosts(configFile); err != nil {
					log.Errorf("error reloading hosts from %s: %s", configFile, err)
					continue
				}
				log.Infof("reloaded host configuration from %s", configFile)
				if onReload != nil {
					onReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("config watcher error: %s", err)
			}
		}
	}()
	return nil
}

func reloadHosts(configFile string) error {
	contents, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var cfg Configuration
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return err
	}
	SetHosts(cfg.Hosts)
	return nil
}
