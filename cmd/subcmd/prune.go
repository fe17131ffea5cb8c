package subcmd

import (
	"fmt"
	"slices"
	"time"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/diskcache"

	"github.com/dustin/go-humanize"
)

// magic numbers from 'format.go' in package 'time'
const dateFormat = "2006-01-02T15:04:05"

// cacheKey totals the files for one key. A key is pruned as a whole.
type cacheKey struct {
	key      string
	size     int64
	lastUsed time.Time
}

// Prune prunes the disk cache. It is intended for use when the server is not running.
// It supports prune by date, or by size. Prune by date removes keys last written before
// a date/time formatted like: '2025-02-28T12:59:59'. Prune by size removes the least
// recently written keys until the cache is no larger than the size, which may be
// humanized, e.g. '500MB' or '2GiB'.
func Prune() error {
	pruneCfg := config.GetPruneConfig()
	dc, err := diskcache.New(config.GetCachePath())
	if err != nil {
		return err
	}
	keys, err := tallyKeys(dc)
	if err != nil {
		return err
	}
	var matches []cacheKey
	switch pruneCfg.Type {
	case "date":
		matches, err = byDate(keys, pruneCfg.Expr)
	case "size":
		matches, err = bySize(keys, pruneCfg.Expr)
	default:
		return fmt.Errorf("unsupported prune type: %q", pruneCfg.Type)
	}
	if err != nil {
		return err
	}
	return doPrune(dc, pruneCfg.DryRun, matches)
}

// tallyKeys returns the keys in the cache oldest first
func tallyKeys(dc *diskcache.DiskCache) ([]cacheKey, error) {
	byKey := map[string]*cacheKey{}
	err := dc.Walk(func(entry diskcache.Entry) error {
		ck, exists := byKey[entry.Key]
		if !exists {
			ck = &cacheKey{key: entry.Key}
			byKey[entry.Key] = ck
		}
		ck.size += entry.Size
		if entry.ModTime.After(ck.lastUsed) {
			ck.lastUsed = entry.ModTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	keys := make([]cacheKey, 0, len(byKey))
	for _, ck := range byKey {
		keys = append(keys, *ck)
	}
	slices.SortFunc(keys, func(a, b cacheKey) int {
		return a.lastUsed.Compare(b.lastUsed)
	})
	return keys, nil
}

// byDate selects keys last written before the passed date/time
func byDate(keys []cacheKey, date string) ([]cacheKey, error) {
	cutoffDate, err := time.ParseInLocation(dateFormat, date, time.Local)
	if err != nil {
		return nil, err
	}
	matches := []cacheKey{}
	for _, ck := range keys {
		if ck.lastUsed.Before(cutoffDate) {
			matches = append(matches, ck)
		}
	}
	return matches, nil
}

// bySize selects the oldest keys until what remains fits in the passed size
func bySize(keys []cacheKey, size string) ([]cacheKey, error) {
	limit, err := humanize.ParseBytes(size)
	if err != nil {
		return nil, err
	}
	var total uint64
	for _, ck := range keys {
		total += uint64(ck.size)
	}
	matches := []cacheKey{}
	for _, ck := range keys {
		if total <= limit {
			break
		}
		matches = append(matches, ck)
		total -= uint64(ck.size)
	}
	return matches, nil
}

// doPrune removes the keys in the passed slice
func doPrune(dc *diskcache.DiskCache, dryRun bool, matches []cacheKey) error {
	dryRunMsg := ""
	if dryRun {
		dryRunMsg = " (dry run)"
	}
	var freed int64
	fmt.Printf("Prune keys%s:\n", dryRunMsg)
	for _, ck := range matches {
		fmt.Printf("%s %s\n", ck.key, humanize.Bytes(uint64(ck.size)))
		if !dryRun {
			if err := dc.Remove(ck.key); err != nil {
				return err
			}
		}
		freed += ck.size
	}
	fmt.Printf("Pruned %d keys, %s%s\n", len(matches), humanize.Bytes(uint64(freed)), dryRunMsg)
	return nil
}
