// Package selector orders the roster from accumulated run history.
//
// It is a moving statistic, not a learner: confidence grows linearly with
// observation count, and above a fixed threshold the ordering exploits
// success rates instead of exploring under-observed workloads. Both halves
// are pure functions so they can be tested without any database.
package selector

import "sort"

// Observations needed before a workload's stats are fully trusted.
const saturationCount = 15

// DefaultExploitThreshold switches from exploration to exploitation.
const DefaultExploitThreshold = 0.7

// Stat is one workload's aggregated history.
type Stat struct {
	Workload  string
	Runs      int
	Successes int
}

// Confidence maps an observation count to [0, 1]: min(1, n/15).
func Confidence(observations int) float64 {
	if observations <= 0 {
		return 0
	}
	c := float64(observations) / float64(saturationCount)
	if c > 1 {
		return 1
	}
	return c
}

// SuccessRate is the fraction of successful runs, 0 when unobserved.
func SuccessRate(s Stat) float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Runs)
}

// Choose orders workload names for the next cycle. When the mean confidence
// across stats reaches the threshold, better-performing workloads go first
// (exploit); otherwise the least-observed go first (explore). Ties break by
// name so the ordering is deterministic.
func Choose(stats []Stat, threshold float64) []string {
	if len(stats) == 0 {
		return nil
	}

	ordered := make([]Stat, len(stats))
	copy(ordered, stats)

	var total float64
	for _, s := range stats {
		total += Confidence(s.Runs)
	}
	mean := total / float64(len(stats))

	if mean >= threshold {
		sort.SliceStable(ordered, func(i, j int) bool {
			ri, rj := SuccessRate(ordered[i]), SuccessRate(ordered[j])
			if ri != rj {
				return ri > rj
			}
			return ordered[i].Workload < ordered[j].Workload
		})
	} else {
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Runs != ordered[j].Runs {
				return ordered[i].Runs < ordered[j].Runs
			}
			return ordered[i].Workload < ordered[j].Workload
		})
	}

	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.Workload
	}
	return names
}
