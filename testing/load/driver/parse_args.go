package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aceeric/imgcache/impl/transform"

	"github.com/urfave/cli/v3"
)

// Config holds the parsed command line arguments
type Config struct {
	shuffle          bool
	noCache          bool
	iterationSeconds int64
	tallySeconds     int64
	chains           []string
	metricsFile      string
	serverURL        string
	urlsFile         string
}

var config Config

var cmd = &cli.Command{
	Name:  "driver",
	Usage: "load tests an imgcache server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "server-url",
			Usage:       "The imgcache server url, e.g. http://localhost:8080",
			Required:    true,
			Destination: &config.serverURL,
			Validator: func(s string) error {
				_, err := url.ParseRequestURI(s)
				return err
			},
		},
		&cli.StringFlag{
			Name:        "urls-file",
			Usage:       "A file of image urls, one per line",
			Required:    true,
			Destination: &config.urlsFile,
		},
		&cli.StringSliceFlag{
			Name:        "transforms",
			Usage:       "A comma-separated transform chain. Repeat for more concurrency, e.g. '--transforms grayscale --transforms invert,blur:2'",
			Destination: &config.chains,
			Validator: func(chains []string) error {
				for _, chain := range chains {
					if _, err := transform.ParseAll(splitChain(chain)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cli.Int64Flag{
			Name:        "iteration-seconds",
			Value:       60,
			Usage:       "Seconds between starting (and then stopping) each puller",
			Destination: &config.iterationSeconds,
			Validator:   positive,
		},
		&cli.Int64Flag{
			Name:        "tally-seconds",
			Value:       15,
			Usage:       "Interval for tallying the request rate",
			Destination: &config.tallySeconds,
			Validator:   positive,
		},
		&cli.StringFlag{
			Name:        "metrics-file",
			Usage:       "Path to metrics output file (stdout if omitted)",
			Destination: &config.metricsFile,
		},
		&cli.BoolFlag{
			Name:        "shuffle",
			Usage:       "Shuffles the url list between passes",
			Destination: &config.shuffle,
		},
		&cli.BoolFlag{
			Name:        "no-cache",
			Usage:       "Requests bypass the server caches",
			Destination: &config.noCache,
		},
	},
	Action: func(ctx context.Context, _ *cli.Command) error {
		urls, err := readUrls(config.urlsFile)
		if err != nil {
			return err
		}
		metrics, err := createFile(config.metricsFile)
		if err != nil {
			return err
		}
		defer metrics.Close()
		chains := config.chains
		if len(chains) == 0 {
			chains = []string{""}
		}
		fmt.Printf("%-20s%s\n", "  ServerURL:", config.serverURL)
		fmt.Printf("%-20s%d\n", "  Urls:", len(urls))
		fmt.Printf("%-20s%v\n", "  Chains:", chains)
		fmt.Printf("%-20s%d\n", "  IterationSeconds:", config.iterationSeconds)
		fmt.Printf("%-20s%d\n", "  TallySeconds:", config.tallySeconds)
		runTests(testRun{
			chains:    chains,
			urls:      urls,
			serverURL: config.serverURL,
			iteration: time.Duration(config.iterationSeconds) * time.Second,
			tally:     time.Duration(config.tallySeconds) * time.Second,
			metrics:   metrics,
			shuffle:   config.shuffle,
			noCache:   config.noCache,
		})
		return nil
	},
}

func positive(v int64) error {
	if v <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

// splitChain splits a comma-separated chain. The empty chain has no transforms.
func splitChain(chain string) []string {
	exprs := []string{}
	for _, expr := range strings.Split(chain, ",") {
		if trimmed := strings.TrimSpace(expr); trimmed != "" {
			exprs = append(exprs, trimmed)
		}
	}
	return exprs
}
