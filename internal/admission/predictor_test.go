package admission

import (
	"testing"
	"time"

	"modelplane/internal/config"
	"modelplane/internal/resource"
)

func knownSnapshot(total, used int64) resource.Snapshot {
	return resource.Snapshot{
		Total:     total,
		Used:      used,
		Free:      total - used,
		Percent:   float64(used) / float64(total),
		Timestamp: time.Now().UTC(),
	}
}

func TestPredict_AdmitsWithinThreshold(t *testing.T) {
	p := Predictor{Threshold: 0.85}
	w := config.Workload{Name: "alpha", Footprint: 4000}

	dec := p.Predict(w, knownSnapshot(10000, 0))

	if !dec.Admit {
		t.Fatalf("expected admit, got reject: %s (%s)", dec.Reason, dec.Detail)
	}
	if dec.Projected != 0.4 {
		t.Errorf("got projected %v, want 0.4", dec.Projected)
	}
}

func TestPredict_BoundaryIsInclusive(t *testing.T) {
	p := Predictor{Threshold: 0.85}
	snap := knownSnapshot(10000, 0)

	// Footprint landing exactly on the threshold is admitted.
	exact := p.Predict(config.Workload{Name: "alpha", Footprint: 8500}, snap)
	if !exact.Admit {
		t.Errorf("footprint exactly at threshold must be admitted, got %s", exact.Reason)
	}

	// One unit above is rejected.
	over := p.Predict(config.Workload{Name: "alpha", Footprint: 8501}, snap)
	if over.Admit {
		t.Error("footprint one unit above threshold must be rejected")
	}
	if over.Reason != ReasonOverThreshold {
		t.Errorf("got reason %s, want %s", over.Reason, ReasonOverThreshold)
	}
}

func TestPredict_RejectsEverythingWhenAlreadySaturated(t *testing.T) {
	p := Predictor{Threshold: 0.85}

	// Current usage above threshold rejects any footprint, even a tiny one.
	snap := knownSnapshot(10000, 8600)
	for _, footprint := range []int64{1, 100, 5000} {
		dec := p.Predict(config.Workload{Name: "w", Footprint: footprint}, snap)
		if dec.Admit {
			t.Errorf("footprint %d admitted against a saturated host", footprint)
		}
		if dec.Reason != ReasonOverThreshold {
			t.Errorf("got reason %s, want %s", dec.Reason, ReasonOverThreshold)
		}
	}
}

func TestPredict_UnknownSnapshotRejects(t *testing.T) {
	p := Predictor{Threshold: 0.85}
	w := config.Workload{Name: "alpha", Footprint: 10}

	dec := p.Predict(w, resource.Snapshot{Unknown: true, Timestamp: time.Now()})

	if dec.Admit {
		t.Error("unknown snapshot must fail safe toward rejection")
	}
	if dec.Reason != ReasonSnapshotUnknown {
		t.Errorf("got reason %s, want %s", dec.Reason, ReasonSnapshotUnknown)
	}
}

func TestPredict_UnknownFootprintRejects(t *testing.T) {
	p := Predictor{Threshold: 0.85}
	snap := knownSnapshot(10000, 0)

	dec := p.Predict(config.Workload{Name: "mystery", Footprint: 0}, snap)

	if dec.Admit {
		t.Error("zero footprint must not be silently admitted")
	}
	if dec.Reason != ReasonWorkloadUnknownSize {
		t.Errorf("got reason %s, want %s", dec.Reason, ReasonWorkloadUnknownSize)
	}
}

func TestPredict_Idempotent(t *testing.T) {
	p := Predictor{Threshold: 0.85}
	w := config.Workload{Name: "alpha", Footprint: 4000}
	snap := knownSnapshot(10000, 3000)

	first := p.Predict(w, snap)
	second := p.Predict(w, snap)

	if first != second {
		t.Errorf("identical inputs produced different decisions:\n%+v\n%+v", first, second)
	}
}

// Two 4000 MB workloads against 10000 MB total at threshold 0.85: both fit.
func TestPredict_SequentialPassBothAdmitted(t *testing.T) {
	p := Predictor{Threshold: 0.85}

	alpha := p.Predict(config.Workload{Name: "alpha", Footprint: 4000}, knownSnapshot(10000, 0))
	if !alpha.Admit {
		t.Fatalf("alpha rejected: %s", alpha.Detail)
	}

	// After alpha loads, usage is 4000; beta projects to 8000/10000 = 80%.
	beta := p.Predict(config.Workload{Name: "beta", Footprint: 4000}, knownSnapshot(10000, 4000))
	if !beta.Admit {
		t.Fatalf("beta rejected: %s", beta.Detail)
	}
	if beta.Projected != 0.8 {
		t.Errorf("got projected %v, want 0.8", beta.Projected)
	}
}

// Same roster against 8000 MB total: the second workload no longer fits.
func TestPredict_SequentialPassSecondRejected(t *testing.T) {
	p := Predictor{Threshold: 0.85}

	alpha := p.Predict(config.Workload{Name: "alpha", Footprint: 4000}, knownSnapshot(8000, 0))
	if !alpha.Admit {
		t.Fatalf("alpha rejected: %s", alpha.Detail)
	}

	beta := p.Predict(config.Workload{Name: "beta", Footprint: 4000}, knownSnapshot(8000, 4000))
	if beta.Admit {
		t.Fatal("beta must be rejected: projected 100% above threshold")
	}
	if beta.Reason != ReasonOverThreshold {
		t.Errorf("got reason %s, want %s", beta.Reason, ReasonOverThreshold)
	}
}
