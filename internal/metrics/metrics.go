package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxResponseSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	votes         map[string]int64
	resets        int64
	responseTimes []time.Duration
	statusCodes   map[int]int64
	storeHealthy  bool
	startTime     time.Time
}

// Snapshot counts what this process served. The store remains the source of
// truth for the vote totals.
type Snapshot struct {
	TotalRequests int64            `json:"total_requests"`
	Uptime        time.Duration    `json:"uptime"`
	Votes         map[string]int64 `json:"votes"`
	Resets        int64            `json:"resets"`
	StatusCodes   map[int]int64    `json:"status_codes"`
	StoreHealthy  bool             `json:"store_healthy"`
	AvgResponse   time.Duration    `json:"avg_response"`
	P50Response   time.Duration    `json:"p50_response"`
	P95Response   time.Duration    `json:"p95_response"`
	P99Response   time.Duration    `json:"p99_response"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) RecordVote(option string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.votes[option]++
}

func (m *Metrics) RecordReset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.resets++
}

func (m *Metrics) RecordResponse(duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > maxResponseSamples {
		m.responseTimes = m.responseTimes[1:]
	}

	m.statusCodes[statusCode]++
}

func (m *Metrics) UpdateStoreHealth(healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.storeHealthy = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.requests,
		Uptime:        time.Since(m.startTime),
		Votes:         make(map[string]int64, len(m.votes)),
		Resets:        m.resets,
		StatusCodes:   make(map[int]int64, len(m.statusCodes)),
		StoreHealthy:  m.storeHealthy,
	}

	for option, n := range m.votes {
		snap.Votes[option] = n
	}
	for code, n := range m.statusCodes {
		snap.StatusCodes[code] = n
	}

	if len(m.responseTimes) > 0 {
		sorted := make([]time.Duration, len(m.responseTimes))
		copy(sorted, m.responseTimes)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		snap.AvgResponse = average(sorted)
		snap.P50Response = percentile(sorted, 0.50)
		snap.P95Response = percentile(sorted, 0.95)
		snap.P99Response = percentile(sorted, 0.99)
	}

	return snap
}

// NewMetrics starts with the store marked healthy; the service only begins
// serving after a successful ping.
func NewMetrics() *Metrics {
	return &Metrics{
		votes:        make(map[string]int64),
		statusCodes:  make(map[int]int64),
		storeHealthy: true,
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
