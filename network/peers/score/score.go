// Package score keeps a decaying numeric score per peer and classifies peers as healthy, to be
// disconnected, or banned.
package score

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/peer"
)

var log = logging.Logger("peers/score")

const (
	MaxScore = 100
	MinScore = -100

	// MinScoreBeforeDisconnect is the score below which a peer should be disconnected.
	MinScoreBeforeDisconnect = -20
	// MinScoreBeforeBan is the score below which a peer is banned.
	MinScoreBeforeBan = -50
)

// State is the classification of a peer derived from its score.
type State int

const (
	Healthy State = iota
	Disconnect
	Banned
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Disconnect:
		return "disconnect"
	case Banned:
		return "banned"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Parameters configures the score store.
type Parameters struct {
	// HalfLife is the time it takes a score to decay half way to zero.
	HalfLife time.Duration
	// BanDuration is how long a peer stays banned after crossing MinScoreBeforeBan. The score does
	// not decay while banned.
	BanDuration time.Duration
	// MaxTracked bounds the amount of peers whose scores are kept. Least recently used are dropped.
	MaxTracked int
}

func DefaultParameters() Parameters {
	return Parameters{
		HalfLife:    10 * time.Minute,
		BanDuration: 30 * time.Minute,
		MaxTracked:  4096,
	}
}

func (p Parameters) Validate() error {
	if p.HalfLife <= 0 {
		return fmt.Errorf("score: half life must be positive")
	}
	if p.BanDuration <= 0 {
		return fmt.Errorf("score: ban duration must be positive")
	}
	if p.MaxTracked <= 0 {
		return fmt.Errorf("score: max tracked peers must be positive")
	}
	return nil
}

type record struct {
	score      float64
	updatedAt  time.Time
	bannedTill time.Time
}

// Store tracks peer scores. It is safe for concurrent use.
type Store struct {
	params Parameters
	clock  clock.Clock

	mu      sync.Mutex
	records *lru.Cache[peer.ID, *record]
}

// NewStore creates a Store. A nil clock uses the wall clock.
func NewStore(params Parameters, clk clock.Clock) (*Store, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	records, err := lru.New[peer.ID, *record](params.MaxTracked)
	if err != nil {
		return nil, fmt.Errorf("score: creating cache: %w", err)
	}
	return &Store{params: params, clock: clk, records: records}, nil
}

// Score returns the current decayed score of the peer. Unknown peers score 0.
func (s *Store) Score(id peer.ID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records.Get(id)
	if !ok {
		return 0
	}
	s.decayLocked(rec, s.clock.Now())
	return rec.score
}

// State classifies the peer by its current score.
func (s *Store) State(id peer.ID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records.Get(id)
	if !ok {
		return Healthy
	}
	now := s.clock.Now()
	s.decayLocked(rec, now)
	return stateOf(rec, now)
}

// ApplyDelta adds delta to the peer's score, clamped to [MinScore, MaxScore], and returns the new
// classification.
func (s *Store) ApplyDelta(id peer.ID, delta float64, reason string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	rec, ok := s.records.Get(id)
	if !ok {
		rec = &record{updatedAt: now}
		s.records.Add(id, rec)
	}
	s.decayLocked(rec, now)

	prev := stateOf(rec, now)
	rec.score = math.Max(MinScore, math.Min(MaxScore, rec.score+delta))
	if rec.score < MinScoreBeforeBan && prev != Banned {
		rec.bannedTill = now.Add(s.params.BanDuration)
	}

	state := stateOf(rec, now)
	if state != prev {
		log.Debugw("peer score state changed",
			"peer", id.String(),
			"score", rec.score,
			"reason", reason,
			"from", prev.String(),
			"to", state.String(),
		)
	}
	return state
}

// decayLocked moves the score exponentially toward zero. Banned peers do not decay until the ban ends.
func (s *Store) decayLocked(rec *record, now time.Time) {
	from := rec.updatedAt
	if rec.bannedTill.After(from) {
		if now.Before(rec.bannedTill) {
			return
		}
		from = rec.bannedTill
	}
	elapsed := now.Sub(from)
	if elapsed <= 0 {
		return
	}
	rec.score *= math.Pow(0.5, float64(elapsed)/float64(s.params.HalfLife))
	rec.updatedAt = now
}

func stateOf(rec *record, now time.Time) State {
	switch {
	case now.Before(rec.bannedTill) || rec.score < MinScoreBeforeBan:
		return Banned
	case rec.score < MinScoreBeforeDisconnect:
		return Disconnect
	default:
		return Healthy
	}
}
