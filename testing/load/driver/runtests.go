package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// testRun has all the test params. The transform chains drive the concurrency: each
// chain gets its own goroutine requesting every url with that chain.
type testRun struct {
	chains    []string
	urls      []string
	serverURL string
	iteration time.Duration
	tally     time.Duration
	metrics   io.Writer
	shuffle   bool
	noCache   bool
}

// counters are shared by a puller and the tally goroutine
type counters struct {
	ok     atomic.Uint64
	failed atomic.Uint64
}

// runTests gradually increases the number of goroutines requesting images until every
// chain is being requested concurrently. Then the goroutines are scaled down and the test
// is stopped.
func runTests(tr testRun) []counters {
	counts := make([]counters, len(tr.chains))
	stop := make([]chan struct{}, len(tr.chains))
	tallyCh := make(chan struct{})
	client := cleanhttp.DefaultPooledClient()
	var wg sync.WaitGroup

	go tallyStats(tallyCh, tr, counts)

	// scale up
	for i := range tr.chains {
		fmt.Printf("%s start test #%d with chain %q\n", time.Now().Format("2006-01-02 15:04:05"), i, tr.chains[i])
		stop[i] = make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			doTest(stop[i], client, tr, tr.chains[i], &counts[i])
		}()
		time.Sleep(tr.iteration)
	}
	// scale down
	for i := len(tr.chains) - 1; i >= 0; i-- {
		fmt.Printf("%s stop test #%d\n", time.Now().Format("2006-01-02 15:04:05"), i)
		close(stop[i])
		if i != 0 {
			// no need to wait after stopping the last test
			time.Sleep(tr.iteration)
		}
	}
	wg.Wait()
	close(tallyCh)
	return counts
}

// doTest requests every url with the passed chain until signalled on the passed channel
func doTest(stop chan struct{}, client *http.Client, tr testRun, chain string, counts *counters) {
	urls := slices.Clone(tr.urls)
	for {
		if tr.shuffle {
			ShuffleInPlace(urls)
		}
		for _, u := range urls {
			select {
			case <-stop:
				return
			default:
			}
			if err := getImage(client, tr.serverURL, u, chain, tr.noCache); err != nil {
				counts.failed.Add(1)
			} else {
				counts.ok.Add(1)
			}
		}
	}
}

// getImage gets one image through the server and discards it
func getImage(client *http.Client, serverURL, imageURL, chain string, noCache bool) error {
	q := url.Values{}
	q.Set("uri", imageURL)
	for _, expr := range splitChain(chain) {
		q.Add("transform", expr)
	}
	if noCache {
		q.Set("noCache", "true")
	}
	resp, err := client.Get(serverURL + "/v1/image?" + q.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// tallyStats tallies the rate of requests for all concurrent pullers
func tallyStats(stop chan struct{}, tr testRun, counts []counters) {
	ticker := time.NewTicker(tr.tally)
	defer ticker.Stop()
	lastOk, lastFailed := sum(counts)
	lastTime := time.Now()
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			ok, failed := sum(counts)
			elapsed := t.Sub(lastTime).Seconds()
			fmt.Fprintf(tr.metrics, "%s\t%f\t%d\n", t.Format("2006-01-02 15:04:05"), float64(ok-lastOk)/elapsed, failed-lastFailed)
			lastOk, lastFailed = ok, failed
			lastTime = t
		}
	}
}

func sum(counts []counters) (uint64, uint64) {
	var ok, failed uint64
	for i := range counts {
		ok += counts[i].ok.Load()
		failed += counts[i].failed.Load()
	}
	return ok, failed
}
