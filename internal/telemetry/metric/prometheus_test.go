package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.LeasesActive == nil {
		t.Error("LeasesActive is nil")
	}
	if r.OpsTotal == nil {
		t.Error("OpsTotal is nil")
	}
	if r.OpDuration == nil {
		t.Error("OpDuration is nil")
	}
}

func TestGlobal(t *testing.T) {
	r1 := Global()
	r2 := Global()
	if r1 != r2 {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	h := Handler()
	if h == nil {
		t.Fatal("Handler() returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(bodyStr, "process_") {
		t.Error("expected process metrics")
	}
}

func TestResourceManagerMetrics(t *testing.T) {
	r := NewRegistry()

	r.IncLeaseActive()
	r.IncLeaseActive()
	r.DecLeaseActive()
	r.SetLeasesActive(10.0)

	r.IncHandleOpened()
	r.IncHandleOpened()
	r.IncHandleClosed()

	r.SetWatchersActive(4)

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "claudefs_meta_leases_active 10") {
		t.Error("expected claudefs_meta_leases_active 10")
	}
	if !strings.Contains(bodyStr, "claudefs_meta_handles_opened_total 2") {
		t.Error("expected claudefs_meta_handles_opened_total 2")
	}
	if !strings.Contains(bodyStr, "claudefs_meta_handles_closed_total 1") {
		t.Error("expected claudefs_meta_handles_closed_total 1")
	}
	if !strings.Contains(bodyStr, "claudefs_meta_watchers_active 4") {
		t.Error("expected claudefs_meta_watchers_active 4")
	}
}

func TestIntegrityVerificationMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordIntegrityVerification("valid")
	r.RecordIntegrityVerification("valid")
	r.RecordIntegrityVerification("invalid")
	r.RecordIntegrityVerification("chain_expired")

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, `claudefs_integrity_verifications_total{result="valid"} 2`) {
		t.Error(`expected claudefs_integrity_verifications_total{result="valid"} 2`)
	}
	if !strings.Contains(bodyStr, `claudefs_integrity_verifications_total{result="invalid"} 1`) {
		t.Error(`expected claudefs_integrity_verifications_total{result="invalid"} 1`)
	}
	if !strings.Contains(bodyStr, `claudefs_integrity_verifications_total{result="chain_expired"} 1`) {
		t.Error(`expected claudefs_integrity_verifications_total{result="chain_expired"} 1`)
	}
}

func TestOpMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordOp("create_file", "ok")
	r.RecordOp("mkdir", "ok")
	r.RecordOp("unlink", "error")

	r.ObserveOpDuration("create_file", 0.005)
	r.ObserveOpDuration("create_file", 0.010)
	r.ObserveOpDuration("mkdir", 0.001)

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, `claudefs_meta_ops_total{op="create_file",outcome="ok"} 1`) {
		t.Error("expected claudefs_meta_ops_total for create_file ok")
	}
	if !strings.Contains(bodyStr, `claudefs_meta_ops_total{op="unlink",outcome="error"} 1`) {
		t.Error("expected claudefs_meta_ops_total for unlink error")
	}
	if !strings.Contains(bodyStr, "claudefs_meta_op_duration_seconds_count") {
		t.Error("expected claudefs_meta_op_duration_seconds_count")
	}
	if !strings.Contains(bodyStr, "claudefs_meta_op_duration_seconds_bucket") {
		t.Error("expected claudefs_meta_op_duration_seconds_bucket")
	}
}

func TestStorageMetrics(t *testing.T) {
	r := NewRegistry()

	r.AddJournalBytes(1024)
	r.AddJournalBytes(2048)
	r.SetMemoryBytes(104857600) // 100MB
	r.SetCheckpointBytes(4096)

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "claudefs_journal_bytes 3072") {
		t.Error("expected claudefs_journal_bytes 3072")
	}
	if !strings.Contains(bodyStr, "claudefs_memory_bytes 1.048576e+08") {
		t.Error("expected claudefs_memory_bytes 1.048576e+08")
	}
	if !strings.Contains(bodyStr, "claudefs_recovery_checkpoint_bytes 4096") {
		t.Error("expected claudefs_recovery_checkpoint_bytes 4096")
	}
}

func TestClusterAndCacheMetrics(t *testing.T) {
	r := NewRegistry()

	r.SetClusterNodes(3)
	r.IncClusterSyncs()
	r.IncCacheHit()
	r.IncCacheHit()
	r.IncCacheMiss()
	r.RecordReplicationConflict("local")
	r.RecordReplicationConflict("remote")

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "claudefs_cluster_nodes 3") {
		t.Error("expected claudefs_cluster_nodes 3")
	}
	if !strings.Contains(bodyStr, "claudefs_blockcache_hits_total 2") {
		t.Error("expected claudefs_blockcache_hits_total 2")
	}
	if !strings.Contains(bodyStr, `claudefs_replication_conflicts_total{winner="local"} 1`) {
		t.Error(`expected claudefs_replication_conflicts_total{winner="local"} 1`)
	}
}

func TestRegistryHandler(t *testing.T) {
	r := NewRegistry()
	h := r.Handler()
	if h == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.IncLeaseActive()
				r.IncHandleOpened()
				r.RecordIntegrityVerification("valid")
				r.RecordOp("create_file", "ok")
				r.ObserveOpDuration("create_file", 0.001)
				r.DecLeaseActive()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	h := r.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
