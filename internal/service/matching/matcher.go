package matching

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
)

// ErrNoDomain is returned when the exact lookup misses and the email has no domain to fuzzy match on.
var ErrNoDomain = errors.New("email has no domain part")

const (
	defaultFuzzyThreshold = 0.7
	defaultFuzzyWeight    = 0.8
)

// Kind labels how a participant was resolved.
type Kind string

// Match kinds.
const (
	KindExact Kind = "exact"
	KindFuzzy Kind = "fuzzy"
	KindNone  Kind = "none"
)

// Config holds the fuzzy tunables. A similarity must be strictly above
// FuzzyThreshold, and the resulting confidence is similarity * FuzzyWeight.
type Config struct {
	FuzzyThreshold float64
	FuzzyWeight    float64
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{FuzzyThreshold: defaultFuzzyThreshold, FuzzyWeight: defaultFuzzyWeight}
}

// Scorer compares a participant display name with a contact full name.
type Scorer func(a, b string) float64

// Result is the outcome for one participant. ContactID and Confidence are both nil when Kind is KindNone.
type Result struct {
	ContactID  *uuid.UUID
	Confidence *float64
	Similarity float64
	Kind       Kind
}

// Matched reports whether a contact was found.
func (r Result) Matched() bool {
	return r.ContactID != nil
}

// Snapshot is the read-only contact directory used for a whole batch.
type Snapshot struct {
	byEmail  map[string]entity.MatchCandidate
	byDomain map[string][]entity.MatchCandidate
}

// NewSnapshot indexes candidates by email and domain. Domain buckets are ordered by
// contact id so ties resolve the same way on every run.
func NewSnapshot(candidates []entity.MatchCandidate) *Snapshot {
	sorted := make([]entity.MatchCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	snap := &Snapshot{
		byEmail:  make(map[string]entity.MatchCandidate, len(sorted)),
		byDomain: make(map[string][]entity.MatchCandidate),
	}
	for _, c := range sorted {
		email := NormalizeEmail(c.Email)
		if email == "" {
			continue
		}
		if _, exists := snap.byEmail[email]; !exists {
			snap.byEmail[email] = c
		}
		if domain, ok := ExtractDomain(email); ok {
			snap.byDomain[domain] = append(snap.byDomain[domain], c)
		}
	}
	return snap
}

// Len returns the number of distinct emails in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byEmail)
}

// Matcher resolves participants against a Snapshot.
type Matcher struct {
	cfg   Config
	score Scorer
}

// Option customises a Matcher.
type Option func(*Matcher)

// WithScorer replaces the name similarity function.
func WithScorer(score Scorer) Option {
	return func(m *Matcher) {
		if score != nil {
			m.score = score
		}
	}
}

// NewMatcher builds a matcher. Out-of-range tunables fall back to the defaults;
// the weight must stay below 1 so fuzzy matches never reach exact-match confidence.
func NewMatcher(cfg Config, opts ...Option) *Matcher {
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold >= 1 {
		cfg.FuzzyThreshold = defaultFuzzyThreshold
	}
	if cfg.FuzzyWeight <= 0 || cfg.FuzzyWeight >= 1 {
		cfg.FuzzyWeight = defaultFuzzyWeight
	}
	m := &Matcher{cfg: cfg, score: Similarity}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match finds the contact for one participant: exact email first, then the most
// similar same-domain contact above the threshold.
func (m *Matcher) Match(email, displayName string, snap *Snapshot) (Result, error) {
	none := Result{Kind: KindNone}
	if snap == nil {
		return none, nil
	}

	email = NormalizeEmail(email)
	if c, ok := snap.byEmail[email]; ok {
		id := c.ID
		confidence := 1.0
		return Result{ContactID: &id, Confidence: &confidence, Similarity: 1, Kind: KindExact}, nil
	}

	domain, ok := ExtractDomain(email)
	if !ok {
		return none, ErrNoDomain
	}

	var (
		best      *entity.MatchCandidate
		bestScore float64
	)
	for i, c := range snap.byDomain[domain] {
		s := min(m.score(displayName, c.FullName), 1)
		if s > m.cfg.FuzzyThreshold && s > bestScore {
			best = &snap.byDomain[domain][i]
			bestScore = s
		}
	}
	if best == nil {
		return none, nil
	}

	id := best.ID
	confidence := bestScore * m.cfg.FuzzyWeight
	return Result{ContactID: &id, Confidence: &confidence, Similarity: bestScore, Kind: KindFuzzy}, nil
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractDomain returns the part after the last '@'.
func ExtractDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	return email[at+1:], true
}
