package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/transform"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. port) if the user does not override
var cfg = config.Configuration{}

func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

func nonNegative(v int64) error {
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func isDir(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("directory not found")
	} else if !fi.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

// flags shared by more than one sub-command
func preloadFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "preload-file",
		Usage:       "Warms the cache from a file containing one image url per line",
		Destination: &cfg.PreloadFile,
		Validator:   isFile,
		Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
			fromCmdline.PreloadFile = true
			return nil
		},
	}
}

func fetchTimeoutFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "fetch-timeout",
		Value:       60000,
		Usage:       "The max time to fetch an image in milliseconds before timing out",
		Destination: &cfg.FetchTimeout,
		Validator:   nonNegative,
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.FetchTimeout = true
			return nil
		},
	}
}

func mipmapMaxSizeFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "mipmap-max-size",
		Value:       2048,
		Usage:       "The largest dimension of a mipmap master tile",
		Destination: &cfg.MipmapMaxSize,
		Validator:   nonNegative,
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.MipmapMaxSize = true
			return nil
		},
	}
}

func maxDimensionFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "max-dimension",
		Value:       transform.DefaultMaxDimension,
		Usage:       "The largest width or height a resize may produce",
		Destination: &cfg.MaxDimension,
		Validator: func(v int64) error {
			if v < 1 || v > transform.MaxDimensionLimit {
				return fmt.Errorf("must be between 1 and %d", transform.MaxDimensionLimit)
			}
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.MaxDimension = true
			return nil
		},
	}
}

func memCacheSizeFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "mem-cache-size",
		Value:       128,
		Usage:       "The number of bitmaps held in the in-memory cache",
		Destination: &cfg.MemCacheSize,
		Validator:   nonNegative,
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.MemCacheSize = true
			return nil
		},
	}
}

func concurrencyFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "concurrency",
		Value:       4,
		Usage:       "The number of preload requests in flight at once",
		Destination: &cfg.Concurrency,
		Validator:   nonNegative,
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.Concurrency = true
			return nil
		},
	}
}

// fetchFlag marks the fetch config as provided
func fetchFlag[T any](ctx context.Context, cmd *cli.Command, _ T) error {
	fromCmdline.FetchConfig = true
	return nil
}

// cmds is for the command line parser urfave/cli
var cmds = &cli.Command{
	Name:  "imgcache",
	Usage: "a deduplicating, caching image fetch and transform server",
	// define this or the parser terminates the program
	ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "error",
			Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
			Destination: &cfg.LogLevel,
			Validator: func(lvl string) error {
				validValues := []string{"debug", "warn", "info", "error"}
				if !slices.Contains(validValues, strings.ToLower(lvl)) {
					return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogLevel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "A file to load configuration values from (cmdline overrides file settings)",
			Destination: &cfg.ConfigFile,
			Validator:   isFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ConfigFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "cache-path",
			Value:       "/var/lib/imgcache",
			Usage:       "The path for the disk cache",
			Destination: &cfg.CachePath,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.CachePath = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "log-file",
			Value:       "",
			Usage:       "log to the specified file rather than the console",
			Destination: &cfg.LogFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogFile = true
				return nil
			},
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "serve",
			Usage: "Runs the server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "serve"
				return nil
			},
			Flags: []cli.Flag{
				preloadFileFlag(),
				&cli.Int64Flag{
					Name:        "port",
					Value:       8080,
					Usage:       "The port to serve on",
					Destination: &cfg.Port,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Port = true
						return nil
					},
				},
				&cli.Int64Flag{
					Name:        "health",
					Usage:       "A port to serve a plain http health endpoint on, in addition to the api port",
					Destination: &cfg.Health,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Health = true
						return nil
					},
				},
				&cli.Int64Flag{
					Name:        "metrics",
					Usage:       "A port to serve prometheus metrics on. Zero disables metrics",
					Destination: &cfg.Metrics,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Metrics = true
						return nil
					},
				},
				memCacheSizeFlag(),
				fetchTimeoutFlag(),
				mipmapMaxSizeFlag(),
				concurrencyFlag(),
				maxDimensionFlag(),
				&cli.StringFlag{
					Name:        "file-root",
					Usage:       "Serves file:// images from under this directory. Without it file:// urls are refused",
					Destination: &cfg.FileRoot,
					Validator:   isDir,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.FileRoot = true
						return nil
					},
				},
			},
		},
		{
			Name:  "fetch",
			Usage: "Runs one image request through the engine and writes the result to a file",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "fetch"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "uri",
					Usage:       "The image url. Also file://, data: and mem:// urls",
					Destination: &cfg.FetchConfig.Uri,
					Action:      fetchFlag[string],
				},
				&cli.StringFlag{
					Name:        "method",
					Value:       "GET",
					Usage:       "The http method",
					Destination: &cfg.FetchConfig.Method,
					Action:      fetchFlag[string],
				},
				&cli.Int64Flag{
					Name:        "width",
					Usage:       "Resize width. Zero preserves the aspect ratio",
					Destination: &cfg.FetchConfig.Width,
					Validator:   nonNegative,
					Action:      fetchFlag[int64],
				},
				&cli.Int64Flag{
					Name:        "height",
					Usage:       "Resize height. Zero preserves the aspect ratio",
					Destination: &cfg.FetchConfig.Height,
					Validator:   nonNegative,
					Action:      fetchFlag[int64],
				},
				&cli.StringFlag{
					Name:        "scale-mode",
					Value:       "fitxy",
					Usage:       "One of fitxy, centercrop, or centerinside",
					Destination: &cfg.FetchConfig.ScaleMode,
					Validator: func(mode string) error {
						_, err := transform.ParseScaleMode(mode)
						return err
					},
					Action: fetchFlag[string],
				},
				&cli.StringSliceFlag{
					Name:        "transform",
					Usage:       "A transform applied in order, e.g. '--transform grayscale --transform blur:1.5'",
					Destination: &cfg.FetchConfig.Transforms,
					Validator: func(exprs []string) error {
						_, err := transform.ParseAll(exprs)
						return err
					},
					Action: fetchFlag[[]string],
				},
				&cli.BoolFlag{
					Name:        "mipmap",
					Usage:       "Stages the image on disk and decodes a sampled master tile",
					Destination: &cfg.FetchConfig.Mipmap,
					Action:      fetchFlag[bool],
				},
				&cli.BoolFlag{
					Name:        "no-cache",
					Usage:       "Bypasses the memory and disk caches",
					Destination: &cfg.FetchConfig.NoCache,
					Action:      fetchFlag[bool],
				},
				&cli.BoolFlag{
					Name:        "no-animate",
					Usage:       "Decodes only the first frame of an animated gif",
					Destination: &cfg.FetchConfig.NoAnimate,
					Action:      fetchFlag[bool],
				},
				&cli.StringFlag{
					Name:        "output",
					Usage:       "The file to write the encoded result to (png, or gif if animated)",
					Destination: &cfg.FetchConfig.Output,
					Action:      fetchFlag[string],
				},
				fetchTimeoutFlag(),
				mipmapMaxSizeFlag(),
				maxDimensionFlag(),
			},
		},
		{
			Name:  "preload",
			Usage: "Loads the disk cache from a file of image urls",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "preload"
				return nil
			},
			Flags: []cli.Flag{
				preloadFileFlag(),
				fetchTimeoutFlag(),
				concurrencyFlag(),
				maxDimensionFlag(),
			},
		},
		{
			Name:  "list",
			Usage: "Lists the cache as it is on the file system",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "list"
				return nil
			},
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "header",
					Value:       false,
					Usage:       "Displays a header line",
					Destination: &cfg.ListConfig.Header,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.ListConfig = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "prefix",
					Usage:       "List only the entries whose key starts with the prefix",
					Destination: &cfg.ListConfig.Expr,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.ListConfig = true
						return nil
					},
				},
			},
		},
		{
			Name:  "prune",
			Usage: "Prunes the disk cache (server should not be running)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "prune"
				return nil
			},
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "date",
					Usage:       "Prune entries written before a timestamp, e.g. '--date 2025-02-28T12:59:59'",
					Destination: &cfg.PruneConfig.Expr,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.PruneConfig = true
						cfg.PruneConfig.Type = "date"
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "size",
					Usage:       "Prune the oldest entries until the cache fits in the size, e.g. '--size 2GB'",
					Destination: &cfg.PruneConfig.Expr,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.PruneConfig = true
						cfg.PruneConfig.Type = "size"
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "dry-run",
					Value:       false,
					Usage:       "Shows what would prune, but does not actually prune",
					Destination: &cfg.PruneConfig.DryRun,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.PruneConfig = true
						return nil
					},
				},
			},
		},
		{
			Name:  "version",
			Usage: "Displays the version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "version"
				return nil
			},
		},
	},
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("serve", "fetch", etc.). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := cmds.Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}
