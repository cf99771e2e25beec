package timeline

import (
	"fmt"
	"math"

	"newscast/internal/services"
)

const epsilon = 0.002

// Validate checks the placement invariants of a built spec: base clips chain with the
// transition overlap, the duration equals the end of the last base clip, and every
// other clip lies within [0, Duration].
func (s Spec) Validate() error {
	base := s.Base()
	if len(base.Clips) == 0 {
		return invalid("timeline has no base clips")
	}
	for i, clip := range base.Clips {
		if clip.Length <= 0 {
			return invalid(fmt.Sprintf("base clip %d has non-positive length", i))
		}
		if i == 0 {
			if math.Abs(clip.Start) > epsilon {
				return invalid("first base clip must start at 0")
			}
			continue
		}
		prev := base.Clips[i-1]
		want := prev.End() - s.Transition
		if math.Abs(clip.Start-want) > epsilon {
			return invalid(fmt.Sprintf("base clip %d starts at %.3f, want %.3f", i, clip.Start, want))
		}
		if clip.Start <= prev.Start {
			return invalid(fmt.Sprintf("base clip %d does not start after clip %d", i, i-1))
		}
	}
	if last := base.Clips[len(base.Clips)-1]; math.Abs(last.End()-s.Duration) > epsilon {
		return invalid(fmt.Sprintf("duration %.3f does not match last clip end %.3f", s.Duration, last.End()))
	}
	for _, track := range s.Tracks {
		if track.Name == TrackBase {
			continue
		}
		for _, clip := range track.Clips {
			if clip.Start < -epsilon || clip.End() > s.Duration+epsilon {
				return invalid(fmt.Sprintf("%s clip [%.3f, %.3f] outside [0, %.3f]", track.Name, clip.Start, clip.End(), s.Duration))
			}
		}
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrInvalidTimeline, "timeline", "validate", message, nil)
}
