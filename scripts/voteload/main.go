// Voteload is a concurrent vote generator that checks the server does not
// lose increments under contention.
//
// Usage:
//
//	go run ./scripts/voteload -url http://localhost -option Cats -concurrency 20 -requests 2000
//	go run ./scripts/voteload -url http://localhost -option Dogs -out summary.json -csv votes.csv
//
// The tool reads the ballot once to obtain a CSRF token and the starting
// count, fires the votes, reads the ballot again and compares
// final - start against the number of accepted votes.
//
// Exit codes:
//
//	0 - every accepted vote was counted
//	1 - setup failed or increments were lost
//	2 - some votes were rejected but none were lost
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const tokenFieldName = "gorilla.csrf.Token"

var (
	tokenPattern   = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)
	resultsPattern = regexp.MustCompile(`<div id="results">(.*) - ([\d,]+) \| (.*) - ([\d,]+)</div>`)
)

var errNoBallot = errors.New("page does not contain a ballot")

type options struct {
	URL         string
	Option      string
	Concurrency int
	Requests    int
	Timeout     time.Duration
	CSVPath     string
}

type report struct {
	Target      string         `json:"target"`
	Option      string         `json:"option"`
	Requests    int            `json:"requests"`
	Concurrency int            `json:"concurrency"`
	Success     int64          `json:"success"`
	Failure     int64          `json:"failure"`
	StartCount  int64          `json:"start_count"`
	FinalCount  int64          `json:"final_count"`
	Lost        int64          `json:"lost"`
	StatusCodes map[int]int64  `json:"status_codes"`
	DurationMS  int64          `json:"duration_ms"`
	Throughput  float64        `json:"throughput_rps"`
	Latency     latencySummary `json:"latency_ms"`
}

type latencySummary struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ballot is what the tool reads back from the page.
type ballot struct {
	Token  string
	Counts map[string]int64
}

func main() {
	var opts options
	flag.StringVar(&opts.URL, "url", "http://localhost", "Base URL of the voting app")
	flag.StringVar(&opts.Option, "option", "Cats", "Option label to vote for")
	flag.IntVar(&opts.Concurrency, "concurrency", 10, "Number of concurrent workers")
	flag.IntVar(&opts.Requests, "requests", 1000, "Total number of votes to send")
	flag.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.StringVar(&opts.CSVPath, "csv", "", "Write per-request CSV to this file (optional)")
	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	flag.Parse()

	rep, err := run(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voteload: %v\n", err)
		os.Exit(1)
	}

	printSummary(os.Stdout, rep)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, rep); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	switch {
	case rep.Lost != 0:
		os.Exit(1)
	case rep.Failure > 0:
		os.Exit(2)
	}
}

func run(ctx context.Context, opts options) (*report, error) {
	if opts.Concurrency < 1 || opts.Requests < 1 {
		return nil, fmt.Errorf("concurrency and requests must be positive")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: opts.Timeout, Jar: jar}

	before, err := fetchBallot(ctx, client, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("read starting count: %w", err)
	}
	start, ok := before.Counts[opts.Option]
	if !ok {
		return nil, fmt.Errorf("option %q is not on the ballot", opts.Option)
	}

	var csvWriter *csv.Writer
	var csvMu sync.Mutex
	if opts.CSVPath != "" {
		f, err := os.Create(opts.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("create csv file: %w", err)
		}
		defer f.Close()
		csvWriter = csv.NewWriter(f)
		defer csvWriter.Flush()
		csvWriter.Write([]string{"idx", "timestamp", "status", "duration_ms"})
	}

	var (
		success, failure atomic.Int64
		latMu            sync.Mutex
		latencies        = make([]time.Duration, 0, opts.Requests)
		statusMu         sync.Mutex
		statusCodes      = make(map[int]int64)
		wg               sync.WaitGroup
	)

	form := url.Values{"vote": {opts.Option}, tokenFieldName: {before.Token}}.Encode()
	jobs := make(chan int)
	testStart := time.Now()

	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				began := time.Now()
				status, err := postVote(ctx, client, opts.URL, form)
				dur := time.Since(began)

				latMu.Lock()
				latencies = append(latencies, dur)
				latMu.Unlock()

				if err != nil {
					failure.Add(1)
					continue
				}

				statusMu.Lock()
				statusCodes[status]++
				statusMu.Unlock()

				if status == http.StatusOK {
					success.Add(1)
				} else {
					failure.Add(1)
				}

				if csvWriter != nil {
					csvMu.Lock()
					csvWriter.Write([]string{
						strconv.Itoa(idx),
						time.Now().Format(time.RFC3339Nano),
						strconv.Itoa(status),
						fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
					})
					csvMu.Unlock()
				}
			}
		}()
	}

	for i := 0; i < opts.Requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(testStart)

	after, err := fetchBallot(ctx, client, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("read final count: %w", err)
	}
	final := after.Counts[opts.Option]

	return &report{
		Target:      opts.URL,
		Option:      opts.Option,
		Requests:    opts.Requests,
		Concurrency: opts.Concurrency,
		Success:     success.Load(),
		Failure:     failure.Load(),
		StartCount:  start,
		FinalCount:  final,
		Lost:        success.Load() - (final - start),
		StatusCodes: statusCodes,
		DurationMS:  elapsed.Milliseconds(),
		Throughput:  float64(opts.Requests) / elapsed.Seconds(),
		Latency:     summarize(latencies),
	}, nil
}

func fetchBallot(ctx context.Context, client *http.Client, base string) (*ballot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseBallot(string(body))
}

func parseBallot(page string) (*ballot, error) {
	tok := tokenPattern.FindStringSubmatch(page)
	res := resultsPattern.FindStringSubmatch(page)
	if tok == nil || res == nil {
		return nil, errNoBallot
	}

	counts := make(map[string]int64, 2)
	for i := 1; i < len(res); i += 2 {
		n, err := strconv.ParseInt(strings.ReplaceAll(res[i+1], ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse count for %q: %w", res[i], err)
		}
		counts[html.UnescapeString(res[i])] = n
	}

	return &ballot{Token: html.UnescapeString(tok[1]), Counts: counts}, nil
}

func postVote(ctx context.Context, client *http.Client, base, form string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/", strings.NewReader(form))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode, nil
}

func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	tmp := make([]time.Duration, len(latencies))
	copy(tmp, latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	var sum time.Duration
	for _, d := range tmp {
		sum += d
	}

	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }
	pick := func(p float64) float64 { return ms(tmp[int(float64(len(tmp)-1)*p)]) }

	return latencySummary{
		Min: ms(tmp[0]),
		Avg: ms(sum / time.Duration(len(tmp))),
		Max: ms(tmp[len(tmp)-1]),
		P50: pick(0.50),
		P90: pick(0.90),
		P95: pick(0.95),
		P99: pick(0.99),
	}
}

func printSummary(w io.Writer, rep *report) {
	fmt.Fprintln(w, "--- Vote Load Summary ---")
	fmt.Fprintf(w, "Target: %s  Option: %s\n", rep.Target, rep.Option)
	fmt.Fprintf(w, "Requests: %d  Concurrency: %d\n", rep.Requests, rep.Concurrency)
	fmt.Fprintf(w, "Success: %d  Failure: %d\n", rep.Success, rep.Failure)
	fmt.Fprintf(w, "Duration: %dms  Throughput: %.2f req/s\n", rep.DurationMS, rep.Throughput)

	fmt.Fprintln(w, "\nStatus codes:")
	codes := make([]int, 0, len(rep.StatusCodes))
	for k := range rep.StatusCodes {
		codes = append(codes, k)
	}
	sort.Ints(codes)
	for _, k := range codes {
		fmt.Fprintf(w, "  %d -> %d\n", k, rep.StatusCodes[k])
	}

	l := rep.Latency
	fmt.Fprintf(w, "\nLatency (ms): min=%.3f avg=%.3f max=%.3f p50=%.3f p90=%.3f p95=%.3f p99=%.3f\n",
		l.Min, l.Avg, l.Max, l.P50, l.P90, l.P95, l.P99)

	fmt.Fprintf(w, "\nCount: start=%d final=%d delta=%d accepted=%d\n",
		rep.StartCount, rep.FinalCount, rep.FinalCount-rep.StartCount, rep.Success)
	if rep.Lost == 0 {
		fmt.Fprintln(w, "OK: no increments lost")
	} else {
		fmt.Fprintf(w, "FAIL: %d increments lost\n", rep.Lost)
	}
}

func writeJSON(path string, rep *report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
