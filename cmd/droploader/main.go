// Command droploader replays a sneaker drop against a running
// sneakerdrop server: a pool of virtual buyers hammers /api/buy while
// a fraction of them browses /api/search, then a latency and status
// summary is printed.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/montanaflynn/stats"
	"github.com/panjf2000/ants/v2"
)

var (
	server    = flag.String("url", "http://127.0.0.1:1816", "sneakerdrop server base url")
	vus       = flag.Int("vus", 50, "concurrent virtual buyers")
	duration  = flag.Duration("duration", 30*time.Second, "how long to run")
	sneakerID = flag.Int64("id", 1, "sneaker id to buy")
	sizes     = flag.String("sizes", "US9,US10,US11", "comma separated sizes to pick from")
	premium   = flag.Float64("premium", 0.3, "fraction of buyers holding a premium pass")
	browse    = flag.Float64("browse", 0.2, "fraction of requests that browse the catalog instead of buying")
)

type buyResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Price   int64  `json:"price"`
}

type collector struct {
	mu        sync.Mutex
	latencies []float64
	statuses  map[string]int
	httpErrs  int
}

func (c *collector) record(elapsed time.Duration, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, float64(elapsed.Milliseconds()))
	c.statuses[status]++
}

func (c *collector) recordErr() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpErrs++
}

func main() {
	flag.Parse()

	sizeList := strings.Split(*sizes, ",")
	client := &http.Client{Timeout: 10 * time.Second}
	coll := &collector{statuses: make(map[string]int)}

	pool, err := ants.NewPool(*vus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool init failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Release()

	deadline := time.Now().Add(*duration)
	var wg sync.WaitGroup
	for i := 0; i < *vus; i++ {
		userID := fmt.Sprintf("vu-%04d", i)
		isPremium := rand.Float64() < *premium
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			runBuyer(client, coll, userID, isPremium, sizeList, deadline)
		})
		if err != nil {
			wg.Done()
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		}
	}
	wg.Wait()

	printSummary(coll)
}

func runBuyer(client *http.Client, coll *collector, userID string, isPremium bool, sizeList []string, deadline time.Time) {
	for time.Now().Before(deadline) {
		if rand.Float64() < *browse {
			doSearch(client, coll, isPremium)
		} else {
			doBuy(client, coll, userID, isPremium, sizeList[rand.Intn(len(sizeList))])
		}
		time.Sleep(time.Duration(100+rand.Intn(400)) * time.Millisecond)
	}
}

func doBuy(client *http.Client, coll *collector, userID string, isPremium bool, size string) {
	form := url.Values{}
	form.Set("id", fmt.Sprintf("%d", *sneakerID))
	form.Set("size", size)
	form.Set("user", userID)
	if isPremium {
		form.Set("premium", "true")
	}

	start := time.Now()
	resp, err := client.PostForm(*server+"/api/buy", form)
	if err != nil {
		coll.recordErr()
		return
	}
	defer resp.Body.Close()

	var result buyResult
	if err := jsoniter.NewDecoder(resp.Body).Decode(&result); err != nil {
		coll.recordErr()
		return
	}
	coll.record(time.Since(start), result.Status)
}

func doSearch(client *http.Client, coll *collector, isPremium bool) {
	q := url.Values{}
	q.Set("budget", "50000")
	if isPremium {
		q.Set("premium", "1")
	}

	start := time.Now()
	resp, err := client.Get(*server + "/api/search?" + q.Encode())
	if err != nil {
		coll.recordErr()
		return
	}
	defer resp.Body.Close()
	coll.record(time.Since(start), "SEARCH")
}

func printSummary(coll *collector) {
	coll.mu.Lock()
	defer coll.mu.Unlock()

	fmt.Printf("requests: %d  transport errors: %d\n", len(coll.latencies), coll.httpErrs)
	for status, count := range coll.statuses {
		fmt.Printf("  %-10s %d\n", status, count)
	}

	if len(coll.latencies) == 0 {
		return
	}
	p50, _ := stats.Percentile(coll.latencies, 50)
	p95, _ := stats.Percentile(coll.latencies, 95)
	p99, _ := stats.Percentile(coll.latencies, 99)
	mean, _ := stats.Mean(coll.latencies)
	fmt.Printf("latency ms: mean=%.1f p50=%.1f p95=%.1f p99=%.1f\n", mean, p50, p95, p99)
}
