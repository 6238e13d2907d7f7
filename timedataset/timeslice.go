package timedataset

import (
	"time"
)

// Index is an ordered sequence of timestamps backing a frame
type Index []time.Time

// First returns the earliest timestamp, or the zero time when empty
func (idx Index) First() time.Time {
	if len(idx) == 0 {
		return time.Time{}
	}
	return idx[0]
}

// Last returns the latest timestamp, or the zero time when empty
func (idx Index) Last() time.Time {
	if len(idx) == 0 {
		return time.Time{}
	}
	return idx[len(idx)-1]
}

// Freq returns the most frequent step between timestamps. Ties go to the shorter step.
func (idx Index) Freq() (time.Duration, error) {
	if len(idx) < 2 {
		return 0, ErrCannotInferFreq
	}

	counts := make(map[time.Duration]int)
	var (
		best    time.Duration
		bestCnt int
	)
	for i := 1; i < len(idx); i++ {
		step := idx[i].Sub(idx[i-1])
		counts[step]++
		cnt := counts[step]
		if cnt > bestCnt || (cnt == bestCnt && step < best) {
			best, bestCnt = step, cnt
		}
	}
	return best, nil
}

// Gaps returns the positions i where idx[i] does not follow idx[i-1] by exactly step
func (idx Index) Gaps(step time.Duration) []int {
	var gaps []int
	for i := 1; i < len(idx); i++ {
		if idx[i].Sub(idx[i-1]) != step {
			gaps = append(gaps, i)
		}
	}
	return gaps
}
