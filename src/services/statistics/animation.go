package statistics

import "time"

// Animation timings used by the portal pages for count-up effects.
const (
	CounterSteps    = 30
	CounterDuration = time.Second
	BarSteps        = 40
	BarDuration     = 1500 * time.Millisecond
)

// AnimationFrames returns the intermediate values of a linear count from
// `from` to `to` over steps frames. The last frame is always exactly `to`.
// Hosts without animation can simply use `to`.
func AnimationFrames(from, to, steps int) []int {
	if steps <= 0 {
		return []int{to}
	}
	frames := make([]int, steps)
	for i := 1; i <= steps; i++ {
		frames[i-1] = from + roundDiv((to-from)*i, steps)
	}
	frames[steps-1] = to
	return frames
}

// BarFrames is AnimationFrames for progress-bar widths, clamped to [0,100].
func BarFrames(from, to int) []int {
	frames := AnimationFrames(from, to, BarSteps)
	for i, v := range frames {
		frames[i] = clampPercent(v)
	}
	return frames
}

// FrameInterval is the delay between two frames.
func FrameInterval(total time.Duration, steps int) time.Duration {
	if steps <= 0 {
		return total
	}
	return total / time.Duration(steps)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
