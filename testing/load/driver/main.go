// Command driver puts an imgcache server under load. Each transform chain passed with
// --transforms gets its own goroutine that requests every url in the urls file through
// the server with that chain, over and over. The goroutines are started one per
// iteration and then stopped one per iteration, and the aggregate request rate is
// tallied to the metrics file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readUrls reads the image urls to request, one per line
func readUrls(urlsFile string) ([]string, error) {
	f, err := os.Open(urlsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	urls := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls in %s", urlsFile)
	}
	return urls, scanner.Err()
}

// createFile ensures the path and file for metrics exist. If the passed file path is
// the empty string then stdout is returned.
func createFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return f, nil
}
