// Package bitmap has the artifact type that flows through the engine and the caches.
package bitmap

import "image"

// Origin tags where an artifact came from
type Origin int

const (
	FromMemory Origin = iota
	FromDisk
	FromNetwork
	FromLoader
)

func (o Origin) String() string {
	switch o {
	case FromMemory:
		return "memory"
	case FromDisk:
		return "disk"
	case FromNetwork:
		return "network"
	case FromLoader:
		return "loader"
	}
	return "unknown"
}

// Info is a decoded artifact. An animated GIF decoded with animation enabled has one
// frame per GIF frame, everything else has exactly one frame. Stored artifacts are never
// modified in place: transforms produce a new Info.
type Info struct {
	// Key is the cache key the artifact is stored under (BitmapKey, or DownloadKey for raw
	// downloads and mipmap master tiles)
	Key    string
	Frames []image.Image
	// Delays has the per-frame delay in 100ths of a second, for animated frames only
	Delays []int
	// Origin is where this copy was served from. A memory hit rewrites it.
	Origin Origin
	// Source is where the pixels were produced. It is set once by the producer and
	// survives cache hits, so caching decisions look at Source, not Origin. For
	// example loader results are never written to the disk cache.
	Source Origin
	// Mipmap is true for a sampled master tile decoded from a disk-staged download
	Mipmap bool
	// SourceFile is the disk cache file a mipmap tile was decoded from
	SourceFile string
}

// First returns the first frame or nil if there are no frames
func (i Info) First() image.Image {
	if len(i.Frames) == 0 {
		return nil
	}
	return i.Frames[0]
}

// IsEmpty is true if the Info holds no frames
func (i Info) IsEmpty() bool {
	return len(i.Frames) == 0
}

// Bounds returns the bounds of the first frame
func (i Info) Bounds() image.Rectangle {
	if f := i.First(); f != nil {
		return f.Bounds()
	}
	return image.Rectangle{}
}

// WithOrigin returns a copy of the receiver with the passed origin
func (i Info) WithOrigin(origin Origin) Info {
	i.Origin = origin
	return i
}

// Produced returns a copy of the receiver tagged as produced by, and served from,
// the passed origin
func (i Info) Produced(origin Origin) Info {
	i.Origin = origin
	i.Source = origin
	return i
}

// WithKey returns a copy of the receiver with the passed key
func (i Info) WithKey(key string) Info {
	i.Key = key
	return i
}
