// Package fraud implements the linear fraud-scoring model: per-request
// feature extraction, weighted sigmoid scoring, and per-origin velocity
// history over a sliding window.
//
// The scorer is the only stateful check in the validation engine. History
// updates for the same origin are serialized through sharded locks; the
// weight set is replaced by atomic pointer swap so an in-flight analysis
// observes either the old or the new set, never a partial one.
package fraud

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	historyShards = 64

	// DefaultVelocityWindow is the trailing window velocity counts over.
	DefaultVelocityWindow = time.Minute
	// DefaultHistoryWindow bounds how long per-origin entries are retained.
	DefaultHistoryWindow = 10 * time.Minute
	// DefaultHistoryCap bounds how many per-origin entries are retained.
	DefaultHistoryCap = 1000
)

var botAgentMarkers = []string{"bot", "crawler", "spider", "curl", "wget", "python-requests", "scanner"}

// Request is the scorer's view of an authentication request. The root
// package adapts its request type into this form.
type Request struct {
	ID             string
	Timestamp      int64 // ms epoch
	Data           map[string]any
	SignatureCount int
	Origin         string
	UserAgent      string
	IPAddress      string
}

// FeatureVector holds the normalized model inputs for one request. All
// fields are in [0,1].
type FeatureVector struct {
	TimeDelta      float64
	RequestSize    float64
	SignatureCount float64
	DataComplexity float64
	SourceEntropy  float64
	VelocityScore  float64
	GeoAnomaly     float64
	BehaviorScore  float64
}

// Config tunes the scorer. Zero values select the defaults above.
type Config struct {
	TrustedOrigins []string // exact origins, or "*."-prefixed suffix patterns
	Regions        []string // CIDR prefixes of recognized regions
	VelocityWindow time.Duration
	HistoryWindow  time.Duration
	HistoryCap     int
}

type historyShard struct {
	mu       sync.Mutex
	byOrigin map[string][]int64 // ms epoch, ascending
}

// Scorer computes fraud scores in [0,1]. Higher means more likely
// fraudulent. Safe for concurrent use.
type Scorer struct {
	cfg     Config
	regions []netip.Prefix
	weights atomic.Pointer[Weights]
	shards  [historyShards]historyShard
	now     func() time.Time
}

// NewScorer builds a scorer with the default weight set.
func NewScorer(cfg Config) *Scorer {
	if cfg.VelocityWindow <= 0 {
		cfg.VelocityWindow = DefaultVelocityWindow
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}

	s := &Scorer{cfg: cfg, now: time.Now}
	for _, raw := range cfg.Regions {
		if p, err := netip.ParsePrefix(raw); err == nil {
			s.regions = append(s.regions, p)
		}
	}
	w := DefaultWeights()
	s.weights.Store(&w)
	for i := range s.shards {
		s.shards[i].byOrigin = make(map[string][]int64)
	}
	return s
}

// Analyze extracts features for the request, updates the per-origin
// history, and returns the sigmoid-squashed fraud score clamped to [0,1].
func (s *Scorer) Analyze(req Request) float64 {
	features := s.Extract(req)
	w := s.weights.Load()

	x := w.Bias +
		w.TimeDelta*features.TimeDelta +
		w.RequestSize*features.RequestSize +
		w.SignatureCount*features.SignatureCount +
		w.DataComplexity*features.DataComplexity +
		w.SourceEntropy*features.SourceEntropy +
		w.VelocityScore*features.VelocityScore +
		w.GeoAnomaly*features.GeoAnomaly +
		w.BehaviorScore*features.BehaviorScore

	return clamp01(sigmoid(x))
}

// Extract computes the normalized feature vector for a request, recording
// the request in the origin's velocity history.
func (s *Scorer) Extract(req Request) FeatureVector {
	serialized, _ := json.Marshal(req.Data)
	nowMs := s.now().UnixMilli()

	age := float64(nowMs - req.Timestamp)
	if age < 0 {
		age = -age
	}

	return FeatureVector{
		TimeDelta:      math.Min(age/300000, 1),
		RequestSize:    math.Min(float64(len(serialized))/5000, 1),
		SignatureCount: math.Min(float64(req.SignatureCount)/3, 1),
		DataComplexity: clamp01(shannonEntropy(serialized) / 6),
		SourceEntropy:  s.sourceEntropy(req.Origin),
		VelocityScore:  s.velocity(req.Origin, nowMs),
		GeoAnomaly:     s.geoAnomaly(req.IPAddress),
		BehaviorScore:  behaviorScore(req),
	}
}

// UpdateWeights atomically replaces the active weight set with a copy of
// the current one plus the named overrides. In-flight analyses observe the
// old or the new set, never a partially-updated one.
func (s *Scorer) UpdateWeights(overrides map[string]float64) error {
	for {
		old := s.weights.Load()
		next, err := old.apply(overrides)
		if err != nil {
			return err
		}
		if s.weights.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// ActiveWeights returns a copy of the weight set in effect.
func (s *Scorer) ActiveWeights() Weights {
	return *s.weights.Load()
}

// velocity prunes and appends the origin's history under the shard lock,
// then maps the trailing-window count onto the 10..100 linear ramp.
func (s *Scorer) velocity(origin string, nowMs int64) float64 {
	if origin == "" {
		origin = "unknown"
	}
	shard := &s.shards[shardFor(origin)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	history := shard.byOrigin[origin]
	cutoff := nowMs - s.cfg.HistoryWindow.Milliseconds()
	start := 0
	for start < len(history) && history[start] < cutoff {
		start++
	}
	history = append(history[start:], nowMs)
	if len(history) > s.cfg.HistoryCap {
		history = history[len(history)-s.cfg.HistoryCap:]
	}
	shard.byOrigin[origin] = history

	windowStart := nowMs - s.cfg.VelocityWindow.Milliseconds()
	count := 0
	for i := len(history) - 1; i >= 0 && history[i] >= windowStart; i-- {
		count++
	}

	switch {
	case count < 10:
		return 0
	case count >= 100:
		return 1
	default:
		return float64(count-10) / 90
	}
}

func (s *Scorer) sourceEntropy(origin string) float64 {
	for _, pattern := range s.cfg.TrustedOrigins {
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if strings.HasSuffix(origin, "."+suffix) || origin == suffix {
				return 0
			}
			continue
		}
		if origin == pattern {
			return 0
		}
	}
	return 0.8
}

func (s *Scorer) geoAnomaly(ip string) float64 {
	if len(s.regions) == 0 {
		return 0
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return 0.3
	}
	for _, region := range s.regions {
		if region.Contains(addr) {
			return 0
		}
	}
	return 0.3
}

func behaviorScore(req Request) float64 {
	triggered := 0
	if req.Timestamp%10000 == 0 {
		triggered++
	}
	agent := strings.ToLower(req.UserAgent)
	for _, marker := range botAgentMarkers {
		if strings.Contains(agent, marker) {
			triggered++
			break
		}
	}
	if len(req.Data) > 50 {
		triggered++
	}
	return float64(triggered) / 3
}

// historyLen reports the retained entry count for an origin. Test hook.
func (s *Scorer) historyLen(origin string) int {
	shard := &s.shards[shardFor(origin)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return len(shard.byOrigin[origin])
}

func shardFor(origin string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(origin))
	return int(h.Sum32() % historyShards)
}

func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
