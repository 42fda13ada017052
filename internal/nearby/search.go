package nearby

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/optimize"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/pkg/geo"
)

// Config holds the collaborators and tuning of a nearby search.
type Config struct {
	// Places answers the nearest-neighbor query.
	Places place.Index

	// Finder runs the per-candidate optimal-time search.
	Finder *optimize.Finder

	// Score ranks survivors (default: WeightedSum(0.5, 0.5)).
	Score ScoreFunc

	// Concurrency is the number of candidates evaluated in parallel
	// (default: 3). Set to 1 when the path engine is not reentrant.
	Concurrency int

	// Logger for search operations.
	Logger zerolog.Logger
}

// Search orchestrates candidate discovery, per-candidate optimal-time
// search, and ranking. Safe for concurrent use.
type Search struct {
	places      place.Index
	finder      *optimize.Finder
	score       ScoreFunc
	concurrency int
	logger      zerolog.Logger
}

// NewSearch creates a nearby search.
func NewSearch(cfg Config) *Search {
	score := cfg.Score
	if score == nil {
		score = WeightedSum(0.5, 0.5)
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 3
	}

	return &Search{
		places:      cfg.Places,
		finder:      cfg.Finder,
		score:       score,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

// Request describes one nearby search.
type Request struct {
	// Start is the walk's origin.
	Start geo.Point

	// Predicate filters candidate places, typically
	// place.CategoryWithHours.
	Predicate place.Predicate

	// Date and Now bound the per-candidate departure search.
	Date time.Time
	Now  time.Time

	// MaxResults caps the number of candidates considered.
	MaxResults int

	// MaxDistance is the search radius in meters.
	MaxDistance float64

	// Score optionally overrides the search's score function for this
	// query.
	Score ScoreFunc
}

// RankedCandidate is one scored destination in a search's result list.
type RankedCandidate struct {
	optimize.Result

	// Rank is 1-based, by ascending optimal value.
	Rank int

	// Score is the candidate's value under the search's score function.
	Score float64
}

// Find returns candidates ranked by ascending optimal value. Candidates
// for which no feasible departure exists are dropped; zero survivors yield
// an empty list, not an error.
func (s *Search) Find(ctx context.Context, req Request) ([]RankedCandidate, error) {
	candidates, err := s.places.NearestNeighbors(ctx, req.Start, req.MaxResults, req.MaxDistance, req.Predicate)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []RankedCandidate{}, nil
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("concurrency", s.concurrency).
		Msg("evaluating nearby candidates")

	results, err := s.evaluate(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	survivors := make([]RankedCandidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			survivors = append(survivors, RankedCandidate{Result: *r})
		}
	}
	if len(survivors) == 0 {
		return survivors, nil
	}

	// Ranking is by optimal value alone; equal values keep their
	// candidate order. Scoring then uses the min/max bounds across all
	// survivors, so it must run after the full reduction.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].OptimalValue < survivors[j].OptimalValue
	})

	score := s.score
	if req.Score != nil {
		score = req.Score
	}
	bounds := resultBounds(survivors)
	for i := range survivors {
		survivors[i].Rank = i + 1
		survivors[i].Score = score(survivors[i].Distance, survivors[i].OptimalValue, bounds)
	}
	return survivors, nil
}

// evaluate fans the candidates out over a bounded worker pool and collects
// the per-candidate finder results in candidate order.
func (s *Search) evaluate(ctx context.Context, req Request, candidates []place.Place) ([]*optimize.Result, error) {
	type job struct {
		index     int
		candidate place.Place
	}
	type outcome struct {
		index  int
		result *optimize.Result
		err    error
	}

	jobs := make(chan job, len(candidates))
	outcomes := make(chan outcome, len(candidates))

	workers := s.concurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					outcomes <- outcome{index: j.index, err: ctx.Err()}
					continue
				default:
				}
				result, err := s.finder.Find(ctx, optimize.Request{
					Start: req.Start,
					Place: j.candidate,
					Date:  req.Date,
					Now:   req.Now,
				})
				outcomes <- outcome{index: j.index, result: result, err: err}
			}
		}()
	}

	for i, candidate := range candidates {
		jobs <- job{index: i, candidate: candidate}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]*optimize.Result, len(candidates))
	var firstErr error
	for o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		results[o.index] = o.result
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func resultBounds(survivors []RankedCandidate) Bounds {
	b := Bounds{
		MinDistance: survivors[0].Distance,
		MaxDistance: survivors[0].Distance,
		MinValue:    survivors[0].OptimalValue,
		MaxValue:    survivors[0].OptimalValue,
	}
	for _, s := range survivors[1:] {
		if s.Distance < b.MinDistance {
			b.MinDistance = s.Distance
		}
		if s.Distance > b.MaxDistance {
			b.MaxDistance = s.Distance
		}
		if s.OptimalValue < b.MinValue {
			b.MinValue = s.OptimalValue
		}
		if s.OptimalValue > b.MaxValue {
			b.MaxValue = s.OptimalValue
		}
	}
	return b
}
