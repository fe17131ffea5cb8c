package subcmd

import (
	"fmt"
	"strings"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/diskcache"

	"github.com/dustin/go-humanize"
)

// ListCache lists the disk cache to the console.
func ListCache() error {
	listCfg := config.GetListConfig()
	dc, err := diskcache.New(config.GetCachePath())
	if err != nil {
		return err
	}
	entries := []diskcache.Entry{}
	err = dc.Walk(func(entry diskcache.Entry) error {
		if strings.HasPrefix(entry.Key, listCfg.Expr) {
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error listing the cache: %s", err)
	}
	if listCfg.Header {
		fmt.Println("KEY INDEX SIZE WRITTEN")
	}
	for _, entry := range entries {
		fmt.Printf("%s %d %s %s\n", entry.Key, entry.Index, humanize.Bytes(uint64(entry.Size)), humanize.Time(entry.ModTime))
	}
	return nil
}
