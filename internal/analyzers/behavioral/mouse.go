package behavioral

import (
	"math"

	"github.com/ignite/survey-integrity-scorer/internal/config"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

type point struct {
	x, y float64
	t    float64 // ms since epoch
}

// Mouse implements §4.2.2. Requires at least 3 mouse_move/mouse_click
// events total; below that, returns Neutral.
func Mouse(events []domain.Event, cfg config.BehavioralConfig) domain.Outcome {
	var moves []point
	var clicks []domain.Event
	total := 0
	for _, e := range events {
		switch e.EventType {
		case domain.EventMouseMove:
			moves = append(moves, point{x: e.Payload.X, y: e.Payload.Y, t: float64(e.Timestamp.UnixNano()) / 1e6})
			total++
		case domain.EventMouseClick:
			clicks = append(clicks, e)
			total++
		}
	}
	if total < cfg.MinMouseEvents {
		return domain.NeutralOutcome()
	}

	flags := 0
	if straightLine(moves) {
		flags++
	}
	if maxSpeed(moves) > cfg.MouseMaxSpeedPxS {
		flags++
	}
	if len(clicks) > 0 && avgPrecision(clicks) > cfg.MousePerfectPrecision {
		flags++
	}
	if len(moves) > 10 && segmentDistanceStddev(moves) < cfg.MouseDistanceStddevPx {
		flags++
	}

	// The divisor grows with the event count, so the same number of
	// flags yields a lower score on a session with more mouse events.
	return domain.ValueOutcome(math.Min(float64(flags)/float64(total+1), 1.0))
}

// straightLine reports whether the path length over all move samples
// is close to the direct first-to-last distance: a human mouse path
// curves, a scripted one is near-linear. All moves are treated as one
// path; they are not split into separate movement segments.
func straightLine(moves []point) bool {
	if len(moves) < 2 {
		return false
	}
	var pathLen float64
	for i := 1; i < len(moves); i++ {
		pathLen += dist(moves[i-1], moves[i])
	}
	direct := dist(moves[0], moves[len(moves)-1])
	if direct < 1 {
		return false
	}
	return pathLen/direct < 1.05
}

func maxSpeed(moves []point) float64 {
	var max float64
	for i := 1; i < len(moves); i++ {
		dt := (moves[i].t - moves[i-1].t) / 1000.0
		if dt <= 0 {
			continue
		}
		speed := dist(moves[i-1], moves[i]) / dt
		if speed > max {
			max = speed
		}
	}
	return max
}

func avgPrecision(clicks []domain.Event) float64 {
	var sum float64
	n := 0
	for _, c := range clicks {
		half := math.Max(c.Payload.TargetW, c.Payload.TargetH) / 2
		if half <= 0 {
			continue
		}
		offset := math.Hypot(c.Payload.TargetHitX, c.Payload.TargetHitY)
		precision := 1 - math.Min(offset/half, 1)
		sum += precision
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func segmentDistanceStddev(moves []point) float64 {
	dists := make([]float64, 0, len(moves)-1)
	for i := 1; i < len(moves); i++ {
		dists = append(dists, dist(moves[i-1], moves[i]))
	}
	_, sd := meanStddev(dists)
	return sd
}

func dist(a, b point) float64 {
	return math.Hypot(b.x-a.x, b.y-a.y)
}
