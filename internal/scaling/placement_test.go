package scaling

import (
	"errors"
	"testing"

	"github.com/claudefs/claudefs/internal/domain"
)

func testConfig() Config {
	return Config{
		ShardCount:               8,
		ReplicaCount:             1,
		MaxConcurrentMigrations:  2,
		MigrationRateBytesPerSec: 1 << 30,
		BalanceTolerance:         0.2,
	}
}

func TestNewManager_RoundRobinPlacement(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2"})

	p0, err := m.Placement(0)
	if err != nil {
		t.Fatalf("Placement(0) error = %v", err)
	}
	if p0.Primary != "n1" {
		t.Errorf("shard 0 primary = %q, want n1", p0.Primary)
	}

	p1, err := m.Placement(1)
	if err != nil {
		t.Fatalf("Placement(1) error = %v", err)
	}
	if p1.Primary != "n2" {
		t.Errorf("shard 1 primary = %q, want n2", p1.Primary)
	}

	if len(p0.Replicas) != 1 || p0.Replicas[0] == p0.Primary {
		t.Errorf("shard 0 replicas = %v, primary ∈ replicas or wrong count", p0.Replicas)
	}
}

func TestPlacement_UnknownShard(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1"})
	_, err := m.Placement(999)
	if !errors.Is(err, domain.ErrNoNodesAvailable) {
		t.Errorf("Placement() error = %v, want ErrNoNodesAvailable", err)
	}
}

func TestPlanJoin_DraftsMigrationsToNewNode(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2"})
	// n1 and n2 each hold 4 shards of 8.

	tasks := m.PlanJoin("n3")
	if len(tasks) == 0 {
		t.Fatalf("expected migrations drafted for new node")
	}
	for _, task := range tasks {
		if task.ToNode != "n3" {
			t.Errorf("task.ToNode = %q, want n3", task.ToNode)
		}
		if task.Status != Pending {
			t.Errorf("drafted task status = %v, want Pending", task.Status)
		}
	}
}

func TestPlanJoin_DraftsMigrationWhenClusterDoubles(t *testing.T) {
	cfg := testConfig()
	cfg.ShardCount = 2
	m := NewManager(cfg, []string{"n1"})
	// With 2 shards and 1 node, n1 has both. Adding n2 halves the target
	// share, so at least one shard must move.
	tasks := m.PlanJoin("n2")
	if len(tasks) == 0 {
		t.Errorf("expected at least one migration when cluster doubles")
	}
}

func TestPlanLeave_ReassignsPrimaries(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2", "n3"})

	tasks := m.PlanLeave("n2")
	if len(tasks) == 0 {
		t.Fatalf("expected migrations for shards owned by leaving node")
	}
	for _, task := range tasks {
		if task.FromNode != "n2" {
			t.Errorf("task.FromNode = %q, want n2", task.FromNode)
		}
		if task.ToNode == "n2" {
			t.Errorf("task.ToNode should not be the leaving node")
		}
	}

	for _, n := range m.Nodes() {
		if n == "n2" {
			t.Errorf("n2 should be removed from node list")
		}
	}

	// No remaining placement should reference n2 as primary.
	for shard := uint32(0); shard < m.cfg.ShardCount; shard++ {
		p, _ := m.Placement(shard)
		if p.Primary == "n2" {
			t.Errorf("shard %d still has n2 as primary after leave", shard)
		}
	}
}

func TestTickMigrations_RespectsMaxConcurrent(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2"})
	m.PlanJoin("n3") // drafts several pending migrations

	started := m.TickMigrations()
	if len(started) > m.cfg.MaxConcurrentMigrations {
		t.Errorf("TickMigrations() started %d, want <= %d", len(started), m.cfg.MaxConcurrentMigrations)
	}
	for _, task := range started {
		if task.Status != InProgress {
			t.Errorf("started task status = %v, want InProgress", task.Status)
		}
	}
}

func TestMigrationLifecycle_CompleteFailRetry(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2"})
	tasks := m.PlanJoin("n3")
	if len(tasks) == 0 {
		t.Fatalf("expected drafted tasks")
	}
	id := tasks[0].ID

	if err := m.CompleteMigration(id); err != nil {
		t.Fatalf("CompleteMigration() error = %v", err)
	}

	if err := m.CompleteMigration(9999); !errors.Is(err, domain.ErrMigrationNotFound) {
		t.Errorf("CompleteMigration() unknown id error = %v, want ErrMigrationNotFound", err)
	}

	id2 := tasks[1%len(tasks)].ID
	if err := m.FailMigration(id2); err != nil {
		t.Fatalf("FailMigration() error = %v", err)
	}
	if err := m.RetryMigration(id2); err != nil {
		t.Fatalf("RetryMigration() error = %v", err)
	}

	if err := m.RetryMigration(id); !errors.Is(err, domain.ErrMigrationConflict) {
		t.Errorf("RetryMigration() on completed task error = %v, want ErrMigrationConflict", err)
	}
}

func TestIsBalanced(t *testing.T) {
	m := NewManager(testConfig(), []string{"n1", "n2"})
	if !m.IsBalanced() {
		t.Errorf("expected freshly round-robin-placed cluster to be balanced")
	}
}
