// Package engine executes image requests. For a request it derives the keys, serves a
// memory hit synchronously, and otherwise joins or starts the one producer for the
// key through the pending registry. A producer runs these stages in order, each
// returning a result rather than calling the next stage:
//
//	untransformed: disk (DownloadKey) -> loader chain -> network -> decode
//	transformed:   disk (BitmapKey) -> raw (deduplicated under DownloadKey)
//	               -> cancellation checkpoint -> transform -> persist -> memory
//	mipmap:        CheckMemory -> CheckDiskFile -> Downloading -> Decoded
//
// A mipmap load bounds the download, which streams to disk rather than memory, and
// the master tile it keeps in memory. Decoding the staged file still holds the
// full-resolution frame for as long as it takes to sample it.
//
// Producers run detached from the caller that started them. A caller that goes away
// detaches its own waiter and nothing else, so the result still reaches the caches
// and the other waiters.
package engine
