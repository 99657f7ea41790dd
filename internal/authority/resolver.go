// Copyright 2025 Shadow Atlas Contributors

package authority

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/shadowatlas/core/internal/boundary"
)

// PreferenceKey identifies one row of the per-jurisdiction, per-layer
// source preference table (spec §4.4: "(per-jurisdiction, per-layer
// table, lower rank = preferred)"). Jurisdiction follows the same
// convention as boundary.Tuple.Jurisdiction: a country code, or
// "country/region" for sub-national layers.
type PreferenceKey struct {
	Jurisdiction string
	Layer        boundary.Type
	SourceName   string
}

// Config holds the tunables the resolver needs to score candidates within an
// identity group. None of these are hard-coded constants; operators supply
// them via configuration (spec §9 Open Questions).
type Config struct {
	// SourcePreferenceRank maps a (jurisdiction, layer, source name) to an
	// ordinal rank, lower is preferred. A (jurisdiction, layer, source)
	// combination absent from the map is treated as the least preferred
	// (rank math.MaxInt) — per spec §8 scenario 3, a source ranked for one
	// jurisdiction/layer carries no preference in another.
	SourcePreferenceRank map[PreferenceKey]int

	// FreshnessHalfLife is the duration after which a record's freshness
	// score decays to half its value. Records retrieved more recently than
	// "asOf" score closer to 1; older records decay toward 0.
	FreshnessHalfLife time.Duration
}

// DefaultConfig returns a resolver configuration with a one-year freshness
// half-life and no explicit source preferences (every source ties at the
// preference stage and resolution falls through to freshness, then the
// lexicographic tiebreak).
func DefaultConfig() Config {
	return Config{
		SourcePreferenceRank: map[PreferenceKey]int{},
		FreshnessHalfLife:    365 * 24 * time.Hour,
	}
}

// jurisdictionOf derives a NormalizedBoundary's jurisdiction string using
// the same country-code, or "country/region", convention as
// boundary.Tuple.Jurisdiction.
func jurisdictionOf(b boundary.NormalizedBoundary) string {
	if b.RegionCode == "" {
		return b.CountryCode
	}
	return b.CountryCode + "/" + b.RegionCode
}

// DiscardedCandidate records a losing source for the audit trail (spec §4.4:
// "every discarded source is recorded, never silently dropped").
type DiscardedCandidate struct {
	Identity   boundary.Identity
	SourceURL  string
	SourceName string
	Reason     string
}

// ResolvedRecord pairs a winning record with its resolution confidence.
// Single-source identity groups skip scoring entirely and pass through with
// Confidence == 1 (spec §4.4); multi-source groups that required picking a
// winner score the winner's authority level divided by
// AuthorityFederalMandate, which reaches 1 only for a federal-mandate winner.
type ResolvedRecord struct {
	boundary.NormalizedBoundary
	Confidence float64
}

// Resolution is the outcome of resolving one batch of candidate records.
type Resolution struct {
	Winners   []ResolvedRecord
	Discarded []DiscardedCandidate
}

// Resolver picks a single winning record per identity out of the candidate
// records contributed by one or more providers for the same (id,
// boundary_type), per spec §4.4.
type Resolver struct {
	cfg    Config
	logger *log.Logger
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New constructs a Resolver.
func New(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		logger: log.New(log.Writer(), "[AuthorityResolver] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve groups candidates by identity and selects one winner per group.
// asOf anchors the freshness score so that resolution is deterministic and
// reproducible given the same input and the same point in time.
//
// The count-preservation guarantee holds by construction: every distinct
// identity present in candidates produces exactly one winner. Resolve
// returns ErrCountMismatch if that invariant is ever violated, which would
// indicate a defect in this function rather than in the input.
func (r *Resolver) Resolve(candidates []boundary.NormalizedBoundary, asOf time.Time) (*Resolution, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	groups := make(map[boundary.Identity][]boundary.NormalizedBoundary)
	var order []boundary.Identity
	for _, c := range candidates {
		id := c.Identity()
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	res := &Resolution{}
	for _, id := range order {
		group := groups[id]
		winner, discarded, err := r.resolveGroup(id, group, asOf)
		if err != nil {
			return nil, err
		}
		res.Winners = append(res.Winners, winner)
		res.Discarded = append(res.Discarded, discarded...)
	}

	if len(res.Winners) != len(order) {
		return nil, ErrCountMismatch
	}
	return res, nil
}

// resolveGroup picks the winner within one identity group using the ordered
// scoring criteria of spec §4.4: authority level, then source preference
// rank, then freshness, then a lexicographic source_url tiebreak.
func (r *Resolver) resolveGroup(id boundary.Identity, group []boundary.NormalizedBoundary, asOf time.Time) (ResolvedRecord, []DiscardedCandidate, error) {
	if len(group) == 0 {
		return ResolvedRecord{}, nil, ErrNoCandidates
	}

	if len(group) == 1 {
		return ResolvedRecord{NormalizedBoundary: group[0], Confidence: 1}, nil, nil
	}

	ranked := make([]boundary.NormalizedBoundary, len(group))
	copy(ranked, group)

	sort.SliceStable(ranked, func(i, j int) bool {
		return r.less(ranked[i], ranked[j], asOf)
	})

	winner := ranked[0]
	var discarded []DiscardedCandidate
	for _, loser := range ranked[1:] {
		reason := "outranked by authority/preference/freshness/source_url ordering"
		if loser.Authority != winner.Authority {
			reason = "lower authority level"
		} else if r.preferenceRank(loser) != r.preferenceRank(winner) {
			reason = "lower source preference rank"
		}
		discarded = append(discarded, DiscardedCandidate{
			Identity:   id,
			SourceURL:  loser.Provenance.SourceURL,
			SourceName: loser.Provenance.SourceName,
			Reason:     reason,
		})
	}
	if len(discarded) > 0 {
		r.logger.Printf("identity %s/%s: %d candidate(s) discarded in favor of %s", id.Type, id.ID, len(discarded), winner.Provenance.SourceURL)
	}
	// A multi-source winner's confidence reflects its own authority level
	// rather than its margin over the runner-up: an AuthorityUnverified
	// source that merely outlasted other unverified sources on freshness
	// still carries low confidence.
	confidence := float64(winner.Authority) / float64(boundary.AuthorityFederalMandate)
	return ResolvedRecord{NormalizedBoundary: winner, Confidence: confidence}, discarded, nil
}

// less reports whether a should sort before b (a wins over b).
func (r *Resolver) less(a, b boundary.NormalizedBoundary, asOf time.Time) bool {
	if a.Authority != b.Authority {
		return a.Authority > b.Authority // higher authority wins
	}
	aRank, bRank := r.preferenceRank(a), r.preferenceRank(b)
	if aRank != bRank {
		return aRank < bRank // lower rank number wins
	}
	aFresh, bFresh := r.freshnessScore(a, asOf), r.freshnessScore(b, asOf)
	if aFresh != bFresh {
		return aFresh > bFresh // higher freshness wins
	}
	return a.Provenance.SourceURL < b.Provenance.SourceURL // lexicographic tiebreak
}

func (r *Resolver) preferenceRank(b boundary.NormalizedBoundary) int {
	key := PreferenceKey{
		Jurisdiction: jurisdictionOf(b),
		Layer:        b.BoundaryType,
		SourceName:   b.Provenance.SourceName,
	}
	if rank, ok := r.cfg.SourcePreferenceRank[key]; ok {
		return rank
	}
	return math.MaxInt
}

// freshnessScore applies exponential decay with the configured half-life:
// score = 2^(-age/halfLife), clamped to [0, 1]. asOf before RetrievedAt
// (a clock skew or test fixture) scores as maximally fresh rather than
// producing a negative age.
func (r *Resolver) freshnessScore(b boundary.NormalizedBoundary, asOf time.Time) float64 {
	if r.cfg.FreshnessHalfLife <= 0 {
		return 1
	}
	age := asOf.Sub(b.Provenance.RetrievedAt).Seconds()
	if age <= 0 {
		return 1
	}
	halfLife := r.cfg.FreshnessHalfLife.Seconds()
	return math.Exp2(-age / halfLife)
}
