package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	appPort  = 8081
	benchKey = "bench-key-12345"
)

// targets are read-heavy admin API calls weighted towards listing.
var targets = []string{
	"/v1/providers",
	"/v1/providers",
	"/v1/providers/openai",
	"/v1/models?q=gpt",
	"/v1/selection",
	"/v1/export",
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	chaos := flag.Bool("chaos", false, "Simulate imports racing the readers")
	flag.Parse()

	// build and start application
	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SERVER_PORT=%d", appPort),
		"SERVER_API_KEYS="+benchKey,
		"STORAGE_DRIVER=memory",
		"CACHE_DRIVER=none",
		"RATE_LIMIT_REQUESTS_PER_SECOND=100000",
		"RATE_LIMIT_BURST=100000",
		"LOG_LEVEL=error",
	)

	// Redirect output to file for debugging
	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")

	done := make(chan struct{})
	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: re-importing the catalog while reading...")
		go startImporter(base, done)
	}

	fmt.Printf("Running benchmark: %s duration, %d req/s\n", *duration, *rate)

	var i int
	var mu sync.Mutex
	targeter := func(t *vegeta.Target) error {
		mu.Lock()
		path := targets[i%len(targets)]
		i++
		mu.Unlock()

		t.Method = http.MethodGet
		t.URL = base + path
		t.Header = http.Header{
			"Authorization": []string{"Bearer " + benchKey},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && len(uniqueErrors) < 5 {
				fmt.Println(msg)
				uniqueErrors[msg] = true
			}
		}
	}

	printServerMetrics(base + "/metrics")
}

// startImporter exports the catalog once and merges it back in a loop.
func startImporter(base string, done chan struct{}) {
	client := &http.Client{Timeout: 5 * time.Second}

	req, _ := http.NewRequest(http.MethodGet, base+"/v1/export", nil)
	req.Header.Set("Authorization", "Bearer "+benchKey)
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("chaos export failed: %v", err)
		return
	}
	backup, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	for {
		select {
		case <-done:
			return
		default:
			mode := "merge"
			if rand.Intn(2) == 0 {
				mode = "replace"
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/import?mode="+mode, bytes.NewReader(backup))
			req.Header.Set("Authorization", "Bearer "+benchKey)
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
			}
			cancel()

			time.Sleep(time.Duration(rand.Intn(50)+10) * time.Millisecond)
		}
	}
}

func printServerMetrics(url string) {
	resp, err := http.Get(url)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	fmt.Println("Server counters:")
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "catalog_http_requests_total") ||
			strings.HasPrefix(line, "catalog_import_total") ||
			strings.HasPrefix(line, "process_resident_memory_bytes") {
			fmt.Println("  " + line)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}
