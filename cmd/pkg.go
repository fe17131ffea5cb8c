/*
Imgcache fetches images over http(s), decodes them, optionally resizes and transforms
them, and caches the results in memory and on the file system. Any number of concurrent
requests for the same image are served by one fetch and one transform.

Usage:

	imgcache [global flags] command [command flags]

Global flags:

	--log-level string
		Sets the minimum value for logging: debug, warn, info, or error. Default 'error'.
	--log-file string
		Logs to the file rather than the console.
	--config-file string
		A yaml file to load configuration from. Command line flags override the file.
		Image host auth and TLS can only be configured in the file.
	--cache-path string
		The path for the disk cache. Default '/var/lib/imgcache'.

Commands:

	serve
		Runs the image server: GET /v1/image?uri=...&w=...&h=...&transform=...
	fetch
		Runs one request through the engine and writes the encoded image to a file.
	preload
		Warms the disk cache from a file of image urls and exits.
	list
		Lists the disk cache.
	prune
		Prunes the disk cache by date or by size. The server should not be running.
	version
		Displays the version.
*/
package main
