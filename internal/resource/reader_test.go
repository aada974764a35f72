package resource

import (
	"context"
	"errors"
	"testing"
)

func TestRead_ComputesDerivedFields(t *testing.T) {
	reader := NewReader(func(ctx context.Context) (int64, int64, error) {
		return 10000, 4000, nil
	})

	snap := reader.Read(context.Background())

	if snap.Unknown {
		t.Fatal("expected a known snapshot")
	}
	if snap.Total != 10000 || snap.Used != 4000 {
		t.Errorf("got total=%d used=%d, want 10000/4000", snap.Total, snap.Used)
	}
	if snap.Free != 6000 {
		t.Errorf("got Free %d, want 6000", snap.Free)
	}
	if snap.Percent != 0.4 {
		t.Errorf("got Percent %v, want 0.4", snap.Percent)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestRead_ProbeErrorYieldsUnknown(t *testing.T) {
	reader := NewReader(func(ctx context.Context) (int64, int64, error) {
		return 0, 0, errors.New("metrics unavailable")
	})

	snap := reader.Read(context.Background())

	if !snap.Unknown {
		t.Error("expected Unknown snapshot on probe error")
	}
	if snap.Total != 0 || snap.Used != 0 || snap.Percent != 0 {
		t.Errorf("unknown snapshot must carry zero values, got %+v", snap)
	}
}

func TestRead_NonsensicalProbeYieldsUnknown(t *testing.T) {
	tests := []struct {
		name        string
		total, used int64
	}{
		{"zero total", 0, 0},
		{"negative total", -1, 0},
		{"negative used", 1000, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewReader(func(ctx context.Context) (int64, int64, error) {
				return tt.total, tt.used, nil
			})

			if snap := reader.Read(context.Background()); !snap.Unknown {
				t.Errorf("expected Unknown for total=%d used=%d", tt.total, tt.used)
			}
		})
	}
}

func TestHostProbe_UsesFixedCapacity(t *testing.T) {
	probe := HostProbe(8000, func(ctx context.Context) (int64, error) {
		return 4100, nil
	})

	total, used, err := probe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 8000 {
		t.Errorf("got total %d, want 8000", total)
	}
	if used != 4100 {
		t.Errorf("got used %d, want 4100", used)
	}
}

func TestHostProbe_PropagatesError(t *testing.T) {
	probe := HostProbe(8000, func(ctx context.Context) (int64, error) {
		return 0, errors.New("host unreachable")
	})

	if _, _, err := probe(context.Background()); err == nil {
		t.Error("expected error from host probe")
	}
}
