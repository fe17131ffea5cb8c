package globals

// EntriesDir is the subdirectory under the disk cache directory where committed
// entries are stored
const EntriesDir = "entries"

// StagingDir is the subdirectory under the disk cache directory where in-progress
// downloads and encodes are temporarily staged before being committed
const StagingDir = "staging"
