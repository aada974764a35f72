// Package resource provides point-in-time capacity snapshots of the
// execution host's budget.
package resource

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a single capacity reading. It is taken fresh before every
// admission decision, passed by value, and discarded after use. When the
// underlying metric cannot be read, Unknown is set and the numeric fields
// are zero; callers must fail safe toward rejection rather than guess.
type Snapshot struct {
	Total     int64 // megabytes
	Used      int64
	Free      int64
	Percent   float64 // fraction of Total in use, 0..1
	Unknown   bool
	Timestamp time.Time
}

// Probe reports (total, used) in megabytes.
type Probe func(ctx context.Context) (total, used int64, err error)

// Reader takes snapshots via an injected probe.
type Reader struct {
	probe Probe
}

// NewReader creates a reader backed by the given probe.
func NewReader(probe Probe) *Reader {
	return &Reader{probe: probe}
}

// Read returns a best-effort snapshot. It never fails: an unreadable or
// nonsensical probe result yields an Unknown snapshot.
func (r *Reader) Read(ctx context.Context) Snapshot {
	snap := Snapshot{Timestamp: time.Now().UTC()}

	total, used, err := r.probe(ctx)
	if err != nil || total <= 0 || used < 0 {
		snap.Unknown = true
		return snap
	}

	snap.Total = total
	snap.Used = used
	snap.Free = total - used
	snap.Percent = float64(used) / float64(total)

	return snap
}

// MemoryProbe reads system memory via gopsutil.
func MemoryProbe(ctx context.Context) (int64, int64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}

	const mb = 1024 * 1024
	return int64(vm.Total / mb), int64(vm.Used / mb), nil
}

// FootprintFunc reports the megabytes currently held on the execution host.
type FootprintFunc func(ctx context.Context) (int64, error)

// HostProbe budgets against a fixed capacity with usage read from the host
// itself. Used when the relevant budget (e.g., accelerator memory) is not
// what the operating system reports.
func HostProbe(capacity int64, loaded FootprintFunc) Probe {
	return func(ctx context.Context) (int64, int64, error) {
		used, err := loaded(ctx)
		if err != nil {
			return 0, 0, err
		}
		return capacity, used, nil
	}
}
