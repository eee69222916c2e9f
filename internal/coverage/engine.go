package coverage

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"backend-coastpath/internal/route"
	"backend-coastpath/internal/shared/geo"

	"github.com/paulmach/orb"
)

const (
	// sampleIntervalM is the step used when walking an activity trace.
	sampleIntervalM = 50.0
	// proximityM is how close a trace sample must be to the reference route
	// to count as on it.
	proximityM = 100.0
	// mergeM is the distance under which two coverage points are the same point.
	mergeM = 20.0
	// breakKm is the route-position gap that starts a new segment.
	breakKm = 0.2
)

// ErrNotInitialized is returned by Analyze before Init has supplied a route.
var ErrNotInitialized = errors.New("coverage engine not initialized")

// Segment is a contiguous run of coverage points along the reference route.
type Segment struct {
	Points   orb.LineString `json:"points"`
	StartKm  float64        `json:"start_km"`
	EndKm    float64        `json:"end_km"`
	LengthKm float64        `json:"length_km"`
}

// Result is the outcome of one analysis. Points is the updated coverage set
// and supersedes the prior one entirely; callers persist it by overwrite.
type Result struct {
	Segments       []Segment   `json:"segments"`
	TotalKm        float64     `json:"total_km"`
	Percent        float64     `json:"percent"`
	PercentDisplay string      `json:"percent_display"`
	Points         []orb.Point `json:"points"`
}

// Engine matches activity traces against a reference route and accumulates
// coverage. It holds no per-request state; one Analyze call is expected in
// flight at a time per instance.
type Engine struct {
	ref   route.Ref
	ready bool
}

func NewEngine() *Engine {
	return &Engine{}
}

// Init hands the engine its reference route for the session.
func (e *Engine) Init(ref route.Ref) {
	e.ref = ref
	e.ready = true
}

func (e *Engine) Ready() bool {
	return e.ready
}

func (e *Engine) RouteLengthKm() float64 {
	return e.ref.TotalKm
}

// Analyze matches trace against the route, merges the matches into prior,
// deduplicates, and derives segments and completion metrics. A nil or
// degenerate trace contributes no new points, so passing nil recomputes the
// derived state from prior alone. onProgress, when non-nil, receives
// monotonically increasing percent ticks while the trace is sampled.
//
// Analyze is idempotent: re-running it with its own output as prior cannot
// grow the point set, because deduplication runs over the full combined set
// every time.
func (e *Engine) Analyze(trace []orb.Point, prior []orb.Point, onProgress func(int)) (Result, error) {
	if !e.ready {
		return Result{}, ErrNotInitialized
	}

	matched := e.matchTrace(orb.LineString(trace), onProgress)

	candidates := make([]orb.Point, 0, len(prior)+len(matched))
	candidates = append(candidates, prior...)
	candidates = append(candidates, matched...)

	unique := mergePoints(candidates)
	placed := e.orderAlongRoute(unique)
	segments := buildSegments(placed)

	var totalKm float64
	for _, s := range segments {
		totalKm += s.LengthKm
	}

	var percent float64
	if e.ref.TotalKm > 0 {
		percent = totalKm / e.ref.TotalKm * 100
	}

	return Result{
		Segments:       segments,
		TotalKm:        totalKm,
		Percent:        percent,
		PercentDisplay: fmt.Sprintf("%.2f", percent),
		Points:         unique,
	}, nil
}

// matchTrace walks the trace at the sample interval, snapping each sample to
// the route and keeping the snapped route point when it falls within the
// proximity threshold. The final remainder below one interval is always
// sampled. Traces with fewer than two points or zero length contribute
// nothing and emit no progress.
func (e *Engine) matchTrace(trace orb.LineString, onProgress func(int)) []orb.Point {
	if len(trace) < 2 {
		return nil
	}
	totalM := geo.LineLengthKm(trace) * 1000
	if totalM <= 0 {
		return nil
	}

	var matched []orb.Point
	lastTick := -1
	for d := 0.0; ; d += sampleIntervalM {
		if d > totalM {
			d = totalM
		}

		sample := geo.PointAtDistanceM(trace, d)
		snapped, distM, _, ok := geo.NearestOnLine(e.ref.Line, sample)
		if ok && distM <= proximityM {
			matched = append(matched, snapped)
		}

		if tick := int(math.Round(d / totalM * 100)); tick > lastTick {
			lastTick = tick
			if onProgress != nil {
				onProgress(tick)
			}
		}

		if d >= totalM {
			break
		}
	}

	// Rounding on short traces can leave the last tick below 100.
	if lastTick < 100 && onProgress != nil {
		onProgress(100)
	}
	return matched
}

// mergePoints reduces candidates to a unique set: a point is kept only when
// no already-kept point lies within the merge threshold. First occurrence
// wins, so prior points survive re-analysis unchanged. O(n²), fine for the
// few thousand points a user accumulates.
func mergePoints(candidates []orb.Point) []orb.Point {
	kept := make([]orb.Point, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, k := range kept {
			if geo.DistanceM(c, k) <= mergeM {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

type placedPoint struct {
	pt orb.Point
	km float64
}

// orderAlongRoute computes each point's position along the route and sorts
// by it. Points whose position cannot be determined are left out of the
// ordering; they stay in the persisted set but cannot take part in
// segmentation.
func (e *Engine) orderAlongRoute(points []orb.Point) []placedPoint {
	placed := make([]placedPoint, 0, len(points))
	for _, p := range points {
		_, _, prefixKm, ok := geo.NearestOnLine(e.ref.Line, p)
		if !ok {
			continue
		}
		placed = append(placed, placedPoint{pt: p, km: prefixKm})
	}
	sort.Slice(placed, func(i, j int) bool {
		return placed[i].km < placed[j].km
	})
	return placed
}

// buildSegments splits positionally ordered points wherever the gap exceeds
// the break threshold. Single-point runs are dropped: an isolated point is
// not covered distance.
func buildSegments(placed []placedPoint) []Segment {
	var segments []Segment
	var run []placedPoint

	flush := func() {
		if len(run) < 2 {
			run = nil
			return
		}
		line := make(orb.LineString, len(run))
		for i, p := range run {
			line[i] = p.pt
		}
		segments = append(segments, Segment{
			Points:   line,
			StartKm:  run[0].km,
			EndKm:    run[len(run)-1].km,
			LengthKm: geo.LineLengthKm(line),
		})
		run = nil
	}

	for _, p := range placed {
		if len(run) > 0 && p.km-run[len(run)-1].km > breakKm {
			flush()
		}
		run = append(run, p)
	}
	flush()

	return segments
}
