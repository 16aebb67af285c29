package metrics

import "testing"

func TestBasicProvider_CounterAccumulates(t *testing.T) {
	p := NewBasicProvider()
	c := p.Counter("events")
	c.Add(1)
	c.Add(2)

	again := p.Counter("events")
	again.Add(3)

	bc := c.(*BasicCounter)
	if got := bc.Snapshot(); got != 6 {
		t.Fatalf("Snapshot() = %d, want 6 (same instrument reused by name)", got)
	}
}

func TestBasicProvider_UpDownCounterGoesNegative(t *testing.T) {
	p := NewBasicProvider()
	u := p.UpDownCounter("queue_depth").(*BasicUpDownCounter)
	u.Add(3)
	u.Add(-5)

	if got := u.Snapshot(); got != -2 {
		t.Fatalf("Snapshot() = %d, want -2", got)
	}
}

func TestBasicHistogram_Snapshot(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("latency").(*BasicHistogram)
	h.Record(1)
	h.Record(3)
	h.Record(2)

	snap := h.Snapshot()
	if snap.Count != 3 || snap.Sum != 6 || snap.Min != 1 || snap.Max != 3 || snap.Mean != 2 {
		t.Fatalf("Snapshot() = %+v, want {Count:3 Sum:6 Min:1 Max:3 Mean:2}", snap)
	}
}

func TestNoopProvider_DiscardsEverything(t *testing.T) {
	p := NewNoopProvider()
	p.Counter("c").Add(1)
	p.UpDownCounter("u").Add(-1)
	p.Histogram("h").Record(5)
}
