package game

import "slices"

// MinDepth is the smallest pyramid a round may use.
const MinDepth = 2

type Options struct {
	DefaultDepth int
	DefaultTimer int
	TimerOptions []int
}

func DefaultOptions() Options {
	return Options{
		DefaultDepth: 3,
		DefaultTimer: 0,
		TimerOptions: []int{0, 60, 120, 180},
	}
}

// depth falls back to the default and never goes below MinDepth.
func (o Options) depth(requested *int) int {
	d := o.DefaultDepth
	if requested != nil {
		d = *requested
	}
	return max(MinDepth, d)
}

// timer only accepts the configured options.
func (o Options) timer(requested *int) int {
	if requested == nil {
		return o.DefaultTimer
	}
	t := max(0, *requested)
	if !slices.Contains(o.TimerOptions, t) {
		return o.DefaultTimer
	}
	return t
}
