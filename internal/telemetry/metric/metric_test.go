package metric

import "testing"

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}
}

func TestCollector_DescribeAndCollect(t *testing.T) {
	c := NewCollector()
	c.ActiveLeases = func() float64 { return 7 }

	reg := NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

// mockCounter implements Counter interface for testing.
type mockCounter struct {
	value float64
}

func (m *mockCounter) Inc()          { m.value++ }
func (m *mockCounter) Add(v float64) { m.value += v }

func TestCounter_Interface(t *testing.T) {
	var c Counter = &mockCounter{}

	c.Inc()
	c.Add(5.0)

	mc := c.(*mockCounter)
	if mc.value != 6.0 {
		t.Errorf("Counter value = %v, want 6.0", mc.value)
	}
}

// mockGauge implements Gauge interface for testing.
type mockGauge struct {
	value float64
}

func (m *mockGauge) Set(v float64) { m.value = v }
func (m *mockGauge) Inc()          { m.value++ }
func (m *mockGauge) Dec()          { m.value-- }
func (m *mockGauge) Add(v float64) { m.value += v }
func (m *mockGauge) Sub(v float64) { m.value -= v }

func TestGauge_Interface(t *testing.T) {
	var g Gauge = &mockGauge{}

	g.Set(10.0)
	mg := g.(*mockGauge)
	if mg.value != 10.0 {
		t.Errorf("Gauge.Set value = %v, want 10.0", mg.value)
	}

	g.Inc()
	if mg.value != 11.0 {
		t.Errorf("Gauge.Inc value = %v, want 11.0", mg.value)
	}

	g.Dec()
	if mg.value != 10.0 {
		t.Errorf("Gauge.Dec value = %v, want 10.0", mg.value)
	}

	g.Add(5.0)
	if mg.value != 15.0 {
		t.Errorf("Gauge.Add value = %v, want 15.0", mg.value)
	}

	g.Sub(3.0)
	if mg.value != 12.0 {
		t.Errorf("Gauge.Sub value = %v, want 12.0", mg.value)
	}
}

// mockHistogram implements Histogram interface for testing.
type mockHistogram struct {
	observations []float64
}

func (m *mockHistogram) Observe(v float64) {
	m.observations = append(m.observations, v)
}

func TestHistogram_Interface(t *testing.T) {
	var h Histogram = &mockHistogram{}

	h.Observe(0.1)
	h.Observe(0.5)
	h.Observe(1.0)

	mh := h.(*mockHistogram)
	if len(mh.observations) != 3 {
		t.Errorf("Histogram observations count = %d, want 3", len(mh.observations))
	}
}

// mockCounterVec implements CounterVec interface for testing.
type mockCounterVec struct {
	counters map[string]*mockCounter
}

func (m *mockCounterVec) WithLabelValues(lvs ...string) Counter {
	key := ""
	for _, lv := range lvs {
		key += lv + ":"
	}
	if m.counters == nil {
		m.counters = make(map[string]*mockCounter)
	}
	if _, ok := m.counters[key]; !ok {
		m.counters[key] = &mockCounter{}
	}
	return m.counters[key]
}

func TestCounterVec_Interface(t *testing.T) {
	var cv CounterVec = &mockCounterVec{}

	c1 := cv.WithLabelValues("create_file", "ok")
	c2 := cv.WithLabelValues("mkdir", "ok")

	c1.Inc()
	c1.Inc()
	c2.Add(3.0)

	c1Again := cv.WithLabelValues("create_file", "ok")
	c1Again.Inc()

	mcv := cv.(*mockCounterVec)
	if mcv.counters["create_file:ok:"].value != 3.0 {
		t.Errorf("CounterVec create_file value = %v, want 3.0", mcv.counters["create_file:ok:"].value)
	}
	if mcv.counters["mkdir:ok:"].value != 3.0 {
		t.Errorf("CounterVec mkdir value = %v, want 3.0", mcv.counters["mkdir:ok:"].value)
	}
}

// mockHistogramVec implements HistogramVec interface for testing.
type mockHistogramVec struct {
	histograms map[string]*mockHistogram
}

func (m *mockHistogramVec) WithLabelValues(lvs ...string) Histogram {
	key := ""
	for _, lv := range lvs {
		key += lv + ":"
	}
	if m.histograms == nil {
		m.histograms = make(map[string]*mockHistogram)
	}
	if _, ok := m.histograms[key]; !ok {
		m.histograms[key] = &mockHistogram{}
	}
	return m.histograms[key]
}

func TestHistogramVec_Interface(t *testing.T) {
	var hv HistogramVec = &mockHistogramVec{}

	h1 := hv.WithLabelValues("create_file")
	h2 := hv.WithLabelValues("mkdir")

	h1.Observe(0.1)
	h1.Observe(0.2)
	h2.Observe(0.5)

	mhv := hv.(*mockHistogramVec)
	if len(mhv.histograms["create_file:"].observations) != 2 {
		t.Errorf("HistogramVec create_file observations = %d, want 2", len(mhv.histograms["create_file:"].observations))
	}
	if len(mhv.histograms["mkdir:"].observations) != 1 {
		t.Errorf("HistogramVec mkdir observations = %d, want 1", len(mhv.histograms["mkdir:"].observations))
	}
}

func TestRegistry_WithMocks(t *testing.T) {
	r := &Registry{
		LeasesActive:           &mockGauge{},
		HandlesOpened:          &mockCounter{},
		HandlesClosed:          &mockCounter{},
		WatchersActive:         &mockGauge{},
		IntegrityVerifications: &mockCounterVec{},
		OpsTotal:               &mockCounterVec{},
		OpDuration:             &mockHistogramVec{},
		JournalBytes:           &mockGauge{},
		CheckpointBytes:        &mockGauge{},
		MemoryBytes:            &mockGauge{},
		ClusterNodes:           &mockGauge{},
		ClusterSyncs:           &mockCounter{},
		CacheHits:              &mockCounter{},
		CacheMisses:            &mockCounter{},
		ReplicationConflicts:   &mockCounterVec{},
	}

	r.IncLeaseActive()
	r.IncLeaseActive()
	r.DecLeaseActive()

	r.IncHandleOpened()
	r.IncHandleClosed()

	r.RecordOp("lookup", "ok")
	r.ObserveOpDuration("lookup", 0.002)

	r.AddJournalBytes(4096)
	r.SetMemoryBytes(512 * 1024 * 1024)
	r.SetClusterNodes(3)
	r.IncClusterSyncs()
	r.IncCacheHit()
	r.IncCacheMiss()
	r.RecordReplicationConflict("local")

	if r.LeasesActive.(*mockGauge).value != 1 {
		t.Errorf("LeasesActive = %v, want 1", r.LeasesActive.(*mockGauge).value)
	}
	if r.HandlesOpened.(*mockCounter).value != 1 {
		t.Error("HandlesOpened not incremented")
	}
}
