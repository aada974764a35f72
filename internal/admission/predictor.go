// Package admission decides whether a workload's declared footprint fits
// within the capacity budget.
package admission

import (
	"fmt"

	"modelplane/internal/config"
	"modelplane/internal/resource"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonAdmitted            Reason = "ADMITTED"
	ReasonOverThreshold       Reason = "OVER_THRESHOLD"
	ReasonSnapshotUnknown     Reason = "SNAPSHOT_UNKNOWN"
	ReasonWorkloadUnknownSize Reason = "WORKLOAD_UNKNOWN_SIZE"
)

// Decision is the outcome of one admission check. It is derived from exactly
// one snapshot and consumed immediately; it is never persisted.
type Decision struct {
	Admit     bool
	Reason    Reason
	Detail    string
	Projected float64 // projected fraction of total capacity after loading
	Snapshot  resource.Snapshot
}

// Predictor applies the safety-threshold policy. It holds no mutable state:
// identical inputs always produce identical decisions.
type Predictor struct {
	// Threshold is the maximum allowed projected fraction of total capacity,
	// inclusive at the boundary.
	Threshold float64
}

// Predict checks the workload against the snapshot.
//
// The current usage is checked as well as the projection: a host already past
// the threshold admits nothing, regardless of how small the candidate claims
// to be. Unknown snapshots and unknown footprints both reject rather than
// default-admit.
func (p Predictor) Predict(w config.Workload, s resource.Snapshot) Decision {
	if s.Unknown {
		return Decision{
			Admit:    false,
			Reason:   ReasonSnapshotUnknown,
			Detail:   "host metrics unavailable, assuming saturated",
			Snapshot: s,
		}
	}

	if w.Footprint <= 0 {
		return Decision{
			Admit:    false,
			Reason:   ReasonWorkloadUnknownSize,
			Detail:   fmt.Sprintf("workload %s declares no footprint", w.Name),
			Snapshot: s,
		}
	}

	projected := float64(s.Used+w.Footprint) / float64(s.Total)

	if s.Percent > p.Threshold {
		return Decision{
			Admit:     false,
			Reason:    ReasonOverThreshold,
			Detail:    fmt.Sprintf("current usage %.1f%% already above threshold %.1f%%", s.Percent*100, p.Threshold*100),
			Projected: projected,
			Snapshot:  s,
		}
	}

	if projected > p.Threshold {
		return Decision{
			Admit:     false,
			Reason:    ReasonOverThreshold,
			Detail:    fmt.Sprintf("projected usage %.1f%% above threshold %.1f%%", projected*100, p.Threshold*100),
			Projected: projected,
			Snapshot:  s,
		}
	}

	return Decision{
		Admit:     true,
		Reason:    ReasonAdmitted,
		Projected: projected,
		Snapshot:  s,
	}
}
