// Package scaling computes shard placement across the cluster and
// drives the migrations needed to rebalance it as nodes join and
// leave. It owns no network I/O: callers feed it membership changes
// and drain migration tasks to execute against the storage layer.
package scaling

import (
	"fmt"
	"sort"

	"golang.org/x/time/rate"

	"github.com/claudefs/claudefs/internal/domain"
)

// ShardPlacement records which node is primary for a shard and which
// nodes hold replicas.
type ShardPlacement struct {
	ShardID  uint32
	Primary  string
	Replicas []string
	Version  uint64
}

// MigrationStatus is the lifecycle state of a MigrationTask.
type MigrationStatus int

const (
	Pending MigrationStatus = iota
	InProgress
	Completed
	Failed
)

func (s MigrationStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MigrationTask describes moving a shard from one node to another.
type MigrationTask struct {
	ID       uint64
	ShardID  uint32
	FromNode string
	ToNode   string
	Status   MigrationStatus
}

// Config tunes the scaling manager's behavior.
type Config struct {
	ShardCount               uint32
	ReplicaCount             int
	MaxConcurrentMigrations  int
	MigrationRateBytesPerSec float64
	BalanceTolerance         float64
}

// DefaultConfig returns sensible scaling defaults.
func DefaultConfig() Config {
	return Config{
		ShardCount:              256,
		ReplicaCount:            2,
		MaxConcurrentMigrations: 4,
		MigrationRateBytesPerSec: 50 << 20,
		BalanceTolerance:        0.1,
	}
}

// Manager owns shard placement and the migration task queue.
type Manager struct {
	cfg Config

	nodes      []string // stable order, used for round-robin placement
	placements map[uint32]*ShardPlacement

	tasks   []*MigrationTask
	nextID  uint64
	limiter *rate.Limiter
}

// NewManager creates a scaling manager with the given initial node
// list, distributing shards round-robin across it.
func NewManager(cfg Config, initialNodes []string) *Manager {
	m := &Manager{
		cfg:        cfg,
		nodes:      append([]string(nil), initialNodes...),
		placements: make(map[uint32]*ShardPlacement, cfg.ShardCount),
		limiter:    rate.NewLimiter(rate.Limit(cfg.MigrationRateBytesPerSec), int(cfg.MigrationRateBytesPerSec)),
	}
	m.initialPlacement()
	return m
}

// initialPlacement assigns every shard a primary and replica_count
// replicas by walking the node list round-robin.
func (m *Manager) initialPlacement() {
	n := len(m.nodes)
	for shard := uint32(0); shard < m.cfg.ShardCount; shard++ {
		if n == 0 {
			break
		}
		primaryIdx := int(shard) % n
		replicas := make([]string, 0, m.cfg.ReplicaCount)
		for r := 1; r <= m.cfg.ReplicaCount && r < n; r++ {
			replicas = append(replicas, m.nodes[(primaryIdx+r)%n])
		}
		m.placements[shard] = &ShardPlacement{
			ShardID:  shard,
			Primary:  m.nodes[primaryIdx],
			Replicas: replicas,
			Version:  1,
		}
	}
}

// Placement returns the current placement for a shard.
func (m *Manager) Placement(shard uint32) (ShardPlacement, error) {
	p, ok := m.placements[shard]
	if !ok {
		return ShardPlacement{}, fmt.Errorf("scaling: placement lookup: %w", domain.ErrNoNodesAvailable)
	}
	return *p, nil
}

// shardsOnNode counts shards whose primary is node.
func (m *Manager) shardsOnNode(node string) int {
	count := 0
	for _, p := range m.placements {
		if p.Primary == node {
			count++
		}
	}
	return count
}

// targetSharePerNode returns floor(N / clusterSize).
func (m *Manager) targetSharePerNode(clusterSize int) int {
	if clusterSize == 0 {
		return 0
	}
	return int(m.cfg.ShardCount) / clusterSize
}

// IsBalanced reports whether every node's primary shard count is
// within BalanceTolerance of the target share.
func (m *Manager) IsBalanced() bool {
	if len(m.nodes) == 0 {
		return true
	}
	target := float64(m.targetSharePerNode(len(m.nodes)))
	if target == 0 {
		return true
	}
	for _, node := range m.nodes {
		count := float64(m.shardsOnNode(node))
		deviation := (count - target) / target
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > m.cfg.BalanceTolerance {
			return false
		}
	}
	return true
}

// PlanJoin drafts Pending migrations moving shards onto a newly joined
// node from over-provisioned primaries until it reaches its target
// share.
func (m *Manager) PlanJoin(newNode string) []*MigrationTask {
	m.nodes = append(m.nodes, newNode)
	clusterSize := len(m.nodes)
	target := m.targetSharePerNode(clusterSize)

	already := m.shardsOnNode(newNode)
	needed := target - already
	if needed <= 0 {
		return nil
	}

	// Sort existing nodes (excluding the new one) by descending shard
	// count, so migrations come from the most over-provisioned first.
	donors := make([]string, 0, len(m.nodes)-1)
	for _, n := range m.nodes {
		if n != newNode {
			donors = append(donors, n)
		}
	}
	sort.Slice(donors, func(i, j int) bool {
		return m.shardsOnNode(donors[i]) > m.shardsOnNode(donors[j])
	})

	var drafted []*MigrationTask
	for _, donor := range donors {
		if needed <= 0 {
			break
		}
		for shard, p := range m.sortedPlacements() {
			if needed <= 0 {
				break
			}
			if p.Primary != donor {
				continue
			}
			task := m.draftMigration(uint32(shard), donor, newNode)
			drafted = append(drafted, task)
			needed--
		}
	}
	return drafted
}

// sortedPlacements returns placements ordered by shard id for
// deterministic iteration.
func (m *Manager) sortedPlacements() []*ShardPlacement {
	out := make([]*ShardPlacement, 0, len(m.placements))
	for _, p := range m.placements {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShardID < out[j].ShardID })
	return out
}

// PlanLeave drafts Pending migrations for every shard whose primary or
// replica is the leaving node, picking a deterministic replacement
// among the remaining nodes. The primary change is applied optimistically;
// the migration task carries the actual data transfer.
func (m *Manager) PlanLeave(leavingNode string) []*MigrationTask {
	remaining := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		if n != leavingNode {
			remaining = append(remaining, n)
		}
	}
	sort.Strings(remaining)
	m.nodes = remaining

	var drafted []*MigrationTask
	if len(remaining) == 0 {
		return drafted
	}

	for _, p := range m.sortedPlacements() {
		if p.Primary == leavingNode {
			replacement := remaining[int(p.ShardID)%len(remaining)]
			task := m.draftMigration(p.ShardID, leavingNode, replacement)
			drafted = append(drafted, task)
			p.Primary = replacement
			p.Version++
		}

		newReplicas := p.Replicas[:0:0]
		for _, r := range p.Replicas {
			if r == leavingNode {
				replacement := remaining[int(p.ShardID)%len(remaining)]
				newReplicas = append(newReplicas, replacement)
			} else {
				newReplicas = append(newReplicas, r)
			}
		}
		p.Replicas = newReplicas
	}
	return drafted
}

// draftMigration appends a new Pending MigrationTask.
func (m *Manager) draftMigration(shard uint32, from, to string) *MigrationTask {
	m.nextID++
	task := &MigrationTask{
		ID:       m.nextID,
		ShardID:  shard,
		FromNode: from,
		ToNode:   to,
		Status:   Pending,
	}
	m.tasks = append(m.tasks, task)
	return task
}

// inProgressCount counts tasks currently InProgress.
func (m *Manager) inProgressCount() int {
	count := 0
	for _, t := range m.tasks {
		if t.Status == InProgress {
			count++
		}
	}
	return count
}

// TickMigrations admits Pending tasks into InProgress up to
// MaxConcurrentMigrations, respecting the bandwidth limiter. Returns
// the tasks that transitioned to InProgress this tick.
func (m *Manager) TickMigrations() []*MigrationTask {
	var started []*MigrationTask
	slots := m.cfg.MaxConcurrentMigrations - m.inProgressCount()

	for _, t := range m.tasks {
		if slots <= 0 {
			break
		}
		if t.Status != Pending {
			continue
		}
		if !m.limiter.Allow() {
			break
		}
		t.Status = InProgress
		started = append(started, t)
		slots--
	}
	return started
}

// CompleteMigration transitions a task to Completed.
func (m *Manager) CompleteMigration(id uint64) error {
	t, err := m.findTask(id)
	if err != nil {
		return err
	}
	t.Status = Completed
	return nil
}

// FailMigration transitions a task to Failed; a failed task can later
// be retried back to Pending via RetryMigration.
func (m *Manager) FailMigration(id uint64) error {
	t, err := m.findTask(id)
	if err != nil {
		return err
	}
	t.Status = Failed
	return nil
}

// RetryMigration moves a Failed task back to Pending.
func (m *Manager) RetryMigration(id uint64) error {
	t, err := m.findTask(id)
	if err != nil {
		return err
	}
	if t.Status != Failed {
		return fmt.Errorf("scaling: retry migration %d: %w", id, domain.ErrMigrationConflict)
	}
	t.Status = Pending
	return nil
}

func (m *Manager) findTask(id uint64) (*MigrationTask, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("scaling: task %d: %w", id, domain.ErrMigrationNotFound)
}

// Tasks returns a snapshot of all migration tasks.
func (m *Manager) Tasks() []MigrationTask {
	out := make([]MigrationTask, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = *t
	}
	return out
}

// Nodes returns the current node list.
func (m *Manager) Nodes() []string {
	return append([]string(nil), m.nodes...)
}
