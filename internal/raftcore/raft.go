// Package raftcore implements the Raft consensus state machine used by
// the metadata service's replicated log. It is intentionally a pure,
// synchronous message-in/message-out state machine: it owns no
// goroutines, timers, or network connections. A caller drives it by
// calling StartElection/BuildHeartbeats on an external timer and by feeding it
// messages received from peers; every method returns the outbound
// messages (if any) the caller is responsible for transporting.
package raftcore

import (
	"fmt"
	"sync"

	"github.com/claudefs/claudefs/internal/domain"
)

// Role is the state a node can be in.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// LogEntry is one entry in the replicated log.
type LogEntry struct {
	Term  uint64
	Index uint64
	Data  []byte
}

// RequestVoteArgs is sent by a candidate to solicit votes.
type RequestVoteArgs struct {
	Term         uint64
	CandidateID  string
	LastLogIndex uint64
	LastLogTerm  uint64
}

// RequestVoteReply is the response to a RequestVoteArgs.
type RequestVoteReply struct {
	Term        uint64
	VoteGranted bool
	VoterID     string
}

// AppendEntriesArgs is sent by the leader to replicate log entries and
// as a heartbeat when Entries is empty.
type AppendEntriesArgs struct {
	Term         uint64
	LeaderID     string
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []LogEntry
	LeaderCommit uint64
}

// AppendEntriesReply is the response to an AppendEntriesArgs.
type AppendEntriesReply struct {
	Term       uint64
	Success    bool
	MatchIndex uint64
	FollowerID string
}

// Node is a single participant in the Raft cluster. All exported
// methods are safe to call concurrently; internally they serialize on
// a mutex, but none of them ever blocks on I/O or spawns a goroutine.
type Node struct {
	mu sync.Mutex

	id    string
	peers []string // does not include id

	currentTerm uint64
	votedFor    string // empty if none
	log         []LogEntry

	commitIndex uint64
	lastApplied uint64

	role     Role
	leaderID string

	// Leader-only volatile state.
	nextIndex  map[string]uint64
	matchIndex map[string]uint64

	// Candidate-only volatile state.
	votesReceived map[string]bool
}

// NewNode constructs a node starting as a follower in term 0 with an
// empty log. peers must not include id.
func NewNode(id string, peers []string) *Node {
	return &Node{
		id:    id,
		peers: append([]string(nil), peers...),
		role:  Follower,
		log:   nil,
	}
}

// ID returns the node's own id.
func (n *Node) ID() string {
	return n.id
}

// CurrentTerm returns the node's current term.
func (n *Node) CurrentTerm() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentTerm
}

// Role returns the node's current role.
func (n *Node) Role() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// LeaderID returns the node's best guess at the current leader, or ""
// if unknown.
func (n *Node) LeaderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.leaderID
}

// CommitIndex returns the highest log index known to be committed.
func (n *Node) CommitIndex() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.commitIndex
}

// LastLogIndex returns the index of the last log entry, 0 if empty.
func (n *Node) LastLogIndex() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastLogIndexLocked()
}

func (n *Node) lastLogIndexLocked() uint64 {
	if len(n.log) == 0 {
		return 0
	}
	return n.log[len(n.log)-1].Index
}

func (n *Node) lastLogTermLocked() uint64 {
	if len(n.log) == 0 {
		return 0
	}
	return n.log[len(n.log)-1].Term
}

func majority(peerCount int) int {
	// peerCount excludes self; cluster size is peerCount+1. Majority is
	// floor(clusterSize/2)+1 so a tied even-sized cluster still needs
	// both halves, not a simple plurality.
	clusterSize := peerCount + 1
	return clusterSize/2 + 1
}

// StartElection transitions the node to candidate, increments its
// term, votes for itself, and returns the RequestVoteArgs to send to
// every peer.
func (n *Node) StartElection() []RequestVoteArgs {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.currentTerm++
	n.role = Candidate
	n.votedFor = n.id
	n.leaderID = ""
	n.votesReceived = map[string]bool{n.id: true}

	args := RequestVoteArgs{
		Term:         n.currentTerm,
		CandidateID:  n.id,
		LastLogIndex: n.lastLogIndexLocked(),
		LastLogTerm:  n.lastLogTermLocked(),
	}

	out := make([]RequestVoteArgs, 0, len(n.peers))
	for range n.peers {
		out = append(out, args)
	}
	return out
}

// HandleRequestVote processes an incoming vote request and returns the
// reply to send back.
func (n *Node) HandleRequestVote(args RequestVoteArgs) RequestVoteReply {
	n.mu.Lock()
	defer n.mu.Unlock()

	if args.Term > n.currentTerm {
		n.stepDownLocked(args.Term)
	}

	if args.Term < n.currentTerm {
		return RequestVoteReply{Term: n.currentTerm, VoteGranted: false, VoterID: n.id}
	}

	canVote := n.votedFor == "" || n.votedFor == args.CandidateID
	logOK := n.isLogUpToDateLocked(args.LastLogIndex, args.LastLogTerm)

	if canVote && logOK {
		n.votedFor = args.CandidateID
		return RequestVoteReply{Term: n.currentTerm, VoteGranted: true, VoterID: n.id}
	}

	return RequestVoteReply{Term: n.currentTerm, VoteGranted: false, VoterID: n.id}
}

// isLogUpToDateLocked implements the Raft §5.4.1 "up-to-date" check: a
// candidate's log is at least as up to date as the voter's if it has a
// higher last term, or an equal last term and an equal-or-longer log.
func (n *Node) isLogUpToDateLocked(lastLogIndex, lastLogTerm uint64) bool {
	myLastTerm := n.lastLogTermLocked()
	myLastIndex := n.lastLogIndexLocked()

	if lastLogTerm != myLastTerm {
		return lastLogTerm > myLastTerm
	}
	return lastLogIndex >= myLastIndex
}

// HandleVoteResponse records a vote reply. If the node is no longer a
// candidate for that term, or the term is stale, the reply is ignored.
// Returns the AppendEntriesArgs heartbeats to send to every peer if
// this vote caused a transition to leader, or nil otherwise.
func (n *Node) HandleVoteResponse(reply RequestVoteReply) []AppendEntriesArgs {
	n.mu.Lock()
	defer n.mu.Unlock()

	if reply.Term > n.currentTerm {
		n.stepDownLocked(reply.Term)
		return nil
	}

	if n.role != Candidate || reply.Term != n.currentTerm || !reply.VoteGranted {
		return nil
	}

	if n.votesReceived == nil {
		n.votesReceived = map[string]bool{}
	}
	n.votesReceived[reply.VoterID] = true

	if len(n.votesReceived) < majority(len(n.peers)) {
		return nil
	}

	// Won the election.
	n.role = Leader
	n.leaderID = n.id
	n.nextIndex = map[string]uint64{}
	n.matchIndex = map[string]uint64{}
	nextIdx := n.lastLogIndexLocked() + 1
	for _, p := range n.peers {
		n.nextIndex[p] = nextIdx
		n.matchIndex[p] = 0
	}

	out := make([]AppendEntriesArgs, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, n.buildAppendEntriesLocked(p))
	}
	return out
}

// buildAppendEntriesLocked constructs the AppendEntriesArgs to send to
// peer, including whatever log entries it hasn't yet acknowledged.
func (n *Node) buildAppendEntriesLocked(peer string) AppendEntriesArgs {
	next := n.nextIndex[peer]
	if next == 0 {
		next = 1
	}

	prevLogIndex := next - 1
	var prevLogTerm uint64
	if prevLogIndex > 0 {
		if entry, ok := n.entryAtLocked(prevLogIndex); ok {
			prevLogTerm = entry.Term
		}
	}

	var entries []LogEntry
	for _, e := range n.log {
		if e.Index >= next {
			entries = append(entries, e)
		}
	}

	return AppendEntriesArgs{
		Term:         n.currentTerm,
		LeaderID:     n.id,
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		Entries:      entries,
		LeaderCommit: n.commitIndex,
	}
}

// entryAtLocked finds the log entry with the given 1-based index.
func (n *Node) entryAtLocked(index uint64) (LogEntry, bool) {
	if index == 0 || index > uint64(len(n.log)) {
		return LogEntry{}, false
	}
	// Entries are stored compactly and indices are contiguous starting
	// at 1, so position = index-1 so long as no log has been truncated
	// from the front (this implementation never compacts).
	e := n.log[index-1]
	if e.Index != index {
		// Fallback linear scan in case of any non-contiguity.
		for _, candidate := range n.log {
			if candidate.Index == index {
				return candidate, true
			}
		}
		return LogEntry{}, false
	}
	return e, true
}

// Propose appends data to the leader's log as a new entry. Returns the
// assigned index, or ErrNotLeader if this node isn't the leader.
func (n *Node) Propose(data []byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != Leader {
		return 0, fmt.Errorf("raftcore: propose failed: %w", domain.ErrNotLeader)
	}

	index := n.lastLogIndexLocked() + 1
	entry := LogEntry{Term: n.currentTerm, Index: index, Data: append([]byte(nil), data...)}
	n.log = append(n.log, entry)

	// Leader always counts its own entries toward its match index.
	if n.matchIndex == nil {
		n.matchIndex = map[string]uint64{}
	}
	n.matchIndex[n.id] = index
	n.tryAdvanceCommitLocked()

	return index, nil
}

// BuildHeartbeats returns the AppendEntriesArgs this leader should send
// to every peer right now (new entries since last ack, or an empty
// heartbeat). Returns nil if this node isn't the leader.
func (n *Node) BuildHeartbeats() []AppendEntriesArgs {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != Leader {
		return nil
	}

	out := make([]AppendEntriesArgs, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, n.buildAppendEntriesLocked(p))
	}
	return out
}

// HandleAppendEntries processes an incoming AppendEntries RPC (either a
// heartbeat or a replication batch) and returns the reply to send back.
func (n *Node) HandleAppendEntries(args AppendEntriesArgs) AppendEntriesReply {
	n.mu.Lock()
	defer n.mu.Unlock()

	if args.Term > n.currentTerm {
		n.stepDownLocked(args.Term)
	}

	if args.Term < n.currentTerm {
		return AppendEntriesReply{Term: n.currentTerm, Success: false, FollowerID: n.id}
	}

	// A valid leader for our term: reset to follower and record it.
	n.role = Follower
	n.leaderID = args.LeaderID

	if args.PrevLogIndex > 0 {
		entry, ok := n.entryAtLocked(args.PrevLogIndex)
		if !ok || entry.Term != args.PrevLogTerm {
			return AppendEntriesReply{Term: n.currentTerm, Success: false, FollowerID: n.id}
		}
	}

	// Truncate conflicting entries and append new ones.
	insertAt := args.PrevLogIndex
	for _, e := range args.Entries {
		if existing, ok := n.entryAtLocked(e.Index); ok {
			if existing.Term == e.Term {
				insertAt = e.Index
				continue
			}
			// Conflict: truncate from here on.
			n.log = n.log[:e.Index-1]
		}
		n.log = append(n.log, e)
		insertAt = e.Index
	}
	_ = insertAt

	if args.LeaderCommit > n.commitIndex {
		last := n.lastLogIndexLocked()
		if args.LeaderCommit < last {
			n.commitIndex = args.LeaderCommit
		} else {
			n.commitIndex = last
		}
	}

	return AppendEntriesReply{
		Term:       n.currentTerm,
		Success:    true,
		MatchIndex: n.lastLogIndexLocked(),
		FollowerID: n.id,
	}
}

// HandleAppendResponse records an AppendEntries reply from a follower
// and advances the commit index if a majority now match.
func (n *Node) HandleAppendResponse(peer string, reply AppendEntriesReply) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if reply.Term > n.currentTerm {
		n.stepDownLocked(reply.Term)
		return
	}

	if n.role != Leader || reply.Term != n.currentTerm {
		return
	}

	if !reply.Success {
		// Decrement nextIndex and let the next heartbeat retry.
		if n.nextIndex[peer] > 1 {
			n.nextIndex[peer]--
		}
		return
	}

	if reply.MatchIndex > n.matchIndex[peer] {
		n.matchIndex[peer] = reply.MatchIndex
	}
	n.nextIndex[peer] = reply.MatchIndex + 1

	n.tryAdvanceCommitLocked()
}

// tryAdvanceCommitLocked advances commitIndex to the highest index
// replicated on a majority of nodes in the current term (Raft §5.4.2:
// a leader may only commit entries from its own term directly).
func (n *Node) tryAdvanceCommitLocked() {
	if n.role != Leader {
		return
	}

	for idx := n.lastLogIndexLocked(); idx > n.commitIndex; idx-- {
		entry, ok := n.entryAtLocked(idx)
		if !ok || entry.Term != n.currentTerm {
			continue
		}

		count := 1 // self
		for _, p := range n.peers {
			if n.matchIndex[p] >= idx {
				count++
			}
		}
		if count >= majority(len(n.peers)) {
			n.commitIndex = idx
			return
		}
	}
}

// stepDownLocked reverts the node to a follower in the given (higher)
// term, clearing any leader/candidate-only state.
func (n *Node) stepDownLocked(term uint64) {
	n.currentTerm = term
	n.role = Follower
	n.votedFor = ""
	n.leaderID = ""
	n.votesReceived = nil
	n.nextIndex = nil
	n.matchIndex = nil
}

// TakeCommittedEntries returns the entries between lastApplied+1 and
// commitIndex (inclusive) and advances lastApplied. The caller is
// responsible for applying them to the metadata state machine.
func (n *Node) TakeCommittedEntries() []LogEntry {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.commitIndex <= n.lastApplied {
		return nil
	}

	var out []LogEntry
	for _, e := range n.log {
		if e.Index > n.lastApplied && e.Index <= n.commitIndex {
			out = append(out, e)
		}
	}
	n.lastApplied = n.commitIndex
	return out
}

// Status is a read-only snapshot of the node's state, used for health
// and cluster-status reporting.
type Status struct {
	ID          string
	Role        Role
	CurrentTerm uint64
	LeaderID    string
	CommitIndex uint64
	LastApplied uint64
	LastLogIdx  uint64
}

// Status returns a snapshot of the node's current state.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		ID:          n.id,
		Role:        n.role,
		CurrentTerm: n.currentTerm,
		LeaderID:    n.leaderID,
		CommitIndex: n.commitIndex,
		LastApplied: n.lastApplied,
		LastLogIdx:  n.lastLogIndexLocked(),
	}
}
