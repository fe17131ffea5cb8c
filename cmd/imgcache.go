package main

import (
	"fmt"
	"os"

	"github.com/aceeric/imgcache/cmd/subcmd"
	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/globals"
	"github.com/aceeric/imgcache/impl/transform"
)

// set by the build
var (
	buildVer = "N/A"
	buildDtm = "N/A"
)

func main() {
	os.Exit(realMain())
}

// realMain runs the sub-command and returns the exit code
func realMain() int {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	if err := globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile()); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %s\n", err)
		return 1
	}
	transform.SetMaxDimension(config.GetMaxDimension())
	switch command {
	case "serve":
		err = subcmd.Serve(buildVer, buildDtm)
	case "fetch":
		err = subcmd.Fetch()
	case "preload":
		err = subcmd.Preload()
	case "list":
		err = subcmd.ListCache()
	case "prune":
		err = subcmd.Prune()
	case "version":
		fmt.Printf("imgcache version: %s build date: %s\n", buildVer, buildDtm)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	return 0
}
