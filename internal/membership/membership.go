// Package membership tracks cluster peers via gossip-style join, leave,
// and suspicion events, exposing the aggregate view MetadataNode needs
// for cluster_status and routing decisions around unhealthy nodes.
package membership

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/memberlist"

	"github.com/claudefs/claudefs/internal/domain"
)

// State is a member's gossip-observed liveness.
type State int

const (
	Alive State = iota
	Suspect
	Dead
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case Suspect:
		return "suspect"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// MemberInfo is one tracked cluster peer.
type MemberInfo struct {
	NodeID        string
	RaftAddr      string
	ShardCapacity uint32
	State         State
	LastSeen      time.Time
}

// ClusterStatus summarizes the membership view for reporting.
type ClusterStatus struct {
	TotalMembers   int
	AliveCount     int
	SuspectCount   int
	DeadCount      int
	LeaderNodeID   string
}

// Config configures a Manager.
type Config struct {
	NodeID        string
	ClusterID     string
	RaftAddr      string
	ShardCapacity uint32

	BindAddr string
	BindPort int
	SeedNodes []string

	Logger *slog.Logger
}

// nodeMetadata is gossiped as each member's opaque metadata blob.
type nodeMetadata struct {
	RaftAddr      string `json:"raft_addr"`
	ShardCapacity uint32 `json:"shard_capacity"`
	ClusterID     string `json:"cluster_id"`
}

// Manager tracks cluster membership. It can be driven by a real
// memberlist gossip transport (NewManager) or fed events directly
// (HandleJoin/HandleLeave/HandleSuspect), which is how tests exercise
// it without a network.
type Manager struct {
	mu      sync.Mutex
	selfID  string
	cluster string
	members map[string]*MemberInfo

	logger *slog.Logger

	memberList *memberlist.Memberlist
	shutdown   atomic.Bool

	onJoin   func(MemberInfo)
	onLeave  func(nodeID string)
	onUpdate func(MemberInfo)
}

// NewManager creates a membership manager and, if cfg.BindAddr is
// non-empty, joins a real memberlist gossip cluster wired to it.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		selfID:  cfg.NodeID,
		cluster: cfg.ClusterID,
		members: make(map[string]*MemberInfo),
		logger:  cfg.Logger,
	}

	m.members[cfg.NodeID] = &MemberInfo{
		NodeID:        cfg.NodeID,
		RaftAddr:      cfg.RaftAddr,
		ShardCapacity: cfg.ShardCapacity,
		State:         Alive,
		LastSeen:      time.Now(),
	}

	if cfg.BindAddr == "" {
		return m, nil
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	metadata := nodeMetadata{
		RaftAddr:      cfg.RaftAddr,
		ShardCapacity: cfg.ShardCapacity,
		ClusterID:     cfg.ClusterID,
	}
	mlConfig.Delegate = &metadataDelegate{metadata: metadata}
	mlConfig.Events = &eventDelegate{manager: m}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("membership: create memberlist: %w", err)
	}
	m.memberList = ml

	if len(cfg.SeedNodes) > 0 {
		n, err := ml.Join(cfg.SeedNodes)
		if err != nil {
			ml.Shutdown()
			return nil, fmt.Errorf("membership: join seed nodes: %w", err)
		}
		cfg.Logger.Info("joined cluster", "node_id", cfg.NodeID, "joined_count", n)
	} else {
		cfg.Logger.Info("started membership manager (bootstrap mode)", "node_id", cfg.NodeID)
	}

	return m, nil
}

// HandleJoin records a peer joining, replacing any prior record for
// the same node id. It is what the real gossip event delegate calls,
// and what tests call directly to simulate gossip.
func (m *Manager) HandleJoin(info MemberInfo) error {
	if info.NodeID == m.selfID {
		return fmt.Errorf("membership: handle join: %w", domain.ErrSelfJoin)
	}

	m.mu.Lock()
	info.State = Alive
	info.LastSeen = time.Now()
	m.members[info.NodeID] = &info
	cb := m.onJoin
	m.mu.Unlock()

	if cb != nil {
		cb(info)
	}
	return nil
}

// HandleLeave marks a node Dead and fires the leave callback.
func (m *Manager) HandleLeave(nodeID string) error {
	m.mu.Lock()
	mem, ok := m.members[nodeID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("membership: handle leave %q: %w", nodeID, domain.ErrNodeUnknown)
	}
	mem.State = Dead
	mem.LastSeen = time.Now()
	cb := m.onLeave
	m.mu.Unlock()

	if cb != nil {
		cb(nodeID)
	}
	return nil
}

// HandleSuspect marks a node Suspect, typically on a missed gossip
// round, without removing it from the roster.
func (m *Manager) HandleSuspect(nodeID string) error {
	m.mu.Lock()
	mem, ok := m.members[nodeID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("membership: handle suspect %q: %w", nodeID, domain.ErrNodeUnknown)
	}
	mem.State = Suspect
	mem.LastSeen = time.Now()
	info := *mem
	cb := m.onUpdate
	m.mu.Unlock()

	if cb != nil {
		cb(info)
	}
	return nil
}

// HandleUpdate refreshes a known node's metadata (e.g. a changed
// raft_addr after restart) without altering its liveness state.
func (m *Manager) HandleUpdate(info MemberInfo) error {
	m.mu.Lock()
	mem, ok := m.members[info.NodeID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("membership: handle update %q: %w", info.NodeID, domain.ErrNodeUnknown)
	}
	mem.RaftAddr = info.RaftAddr
	mem.ShardCapacity = info.ShardCapacity
	mem.LastSeen = time.Now()
	updated := *mem
	cb := m.onUpdate
	m.mu.Unlock()

	if cb != nil {
		cb(updated)
	}
	return nil
}

// AllMembers returns a snapshot of every tracked member, self included.
func (m *Manager) AllMembers() []MemberInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MemberInfo, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, *mem)
	}
	return out
}

// Member looks up a single node's info, or ErrNodeUnknown.
func (m *Manager) Member(nodeID string) (MemberInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[nodeID]
	if !ok {
		return MemberInfo{}, fmt.Errorf("membership: member %q: %w", nodeID, domain.ErrNodeUnknown)
	}
	return *mem, nil
}

// ClusterStatus summarizes current membership.
func (m *Manager) ClusterStatus() ClusterStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := ClusterStatus{TotalMembers: len(m.members)}
	for _, mem := range m.members {
		switch mem.State {
		case Alive:
			status.AliveCount++
		case Suspect:
			status.SuspectCount++
		case Dead:
			status.DeadCount++
		}
	}
	return status
}

// OnJoin registers a callback invoked after a node joins.
func (m *Manager) OnJoin(fn func(MemberInfo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onJoin = fn
}

// OnLeave registers a callback invoked after a node leaves.
func (m *Manager) OnLeave(fn func(nodeID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLeave = fn
}

// OnUpdate registers a callback invoked after a node's state or
// metadata is updated.
func (m *Manager) OnUpdate(fn func(MemberInfo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Leave gracefully leaves the real gossip cluster, if one is active.
func (m *Manager) Leave() error {
	if m.memberList == nil {
		return nil
	}
	if err := m.memberList.Leave(0); err != nil {
		m.logger.Error("failed to leave cluster", "error", err)
		return err
	}
	m.logger.Info("left cluster")
	return nil
}

// Shutdown stops the gossip transport, if any. Safe to call more than once.
func (m *Manager) Shutdown() error {
	if !m.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if m.memberList == nil {
		return nil
	}
	if err := m.memberList.Shutdown(); err != nil {
		return fmt.Errorf("membership: shutdown memberlist: %w", err)
	}
	return nil
}

// eventDelegate implements memberlist.EventDelegate, translating
// gossip events into Manager state changes.
type eventDelegate struct {
	manager *Manager
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	gossipAddr := net.JoinHostPort(node.Addr.String(), fmt.Sprintf("%d", node.Port))

	var meta nodeMetadata
	if len(node.Meta) > 0 {
		if err := json.Unmarshal(node.Meta, &meta); err != nil {
			e.manager.logger.Error("failed to parse node metadata", "node_id", node.Name, "error", err)
			return
		}
	}

	if e.manager.cluster != "" && meta.ClusterID != "" && meta.ClusterID != e.manager.cluster {
		e.manager.logger.Error("cluster ID mismatch, rejecting node",
			"node_id", node.Name, "expected", e.manager.cluster, "got", meta.ClusterID)
		return
	}

	raftAddr := meta.RaftAddr
	if raftAddr == "" {
		raftAddr = gossipAddr
	}

	_ = e.manager.HandleJoin(MemberInfo{
		NodeID:        node.Name,
		RaftAddr:      raftAddr,
		ShardCapacity: meta.ShardCapacity,
	})
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	_ = e.manager.HandleLeave(node.Name)
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	var meta nodeMetadata
	if len(node.Meta) > 0 {
		_ = json.Unmarshal(node.Meta, &meta)
	}
	_ = e.manager.HandleUpdate(MemberInfo{
		NodeID:        node.Name,
		RaftAddr:      meta.RaftAddr,
		ShardCapacity: meta.ShardCapacity,
	})
}

// slogWriter adapts slog.Logger to io.Writer for memberlist's own logging.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(string(p))
	return len(p), nil
}

// metadataDelegate provides this node's gossiped metadata.
type metadataDelegate struct {
	metadata nodeMetadata
}

func (d *metadataDelegate) NodeMeta(limit int) []byte {
	data, err := json.Marshal(d.metadata)
	if err != nil {
		return nil
	}
	if len(data) > limit {
		return data[:limit]
	}
	return data
}

func (d *metadataDelegate) NotifyMsg([]byte)                           {}
func (d *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (d *metadataDelegate) LocalState(join bool) []byte                { return nil }
func (d *metadataDelegate) MergeRemoteState(buf []byte, join bool)     {}
