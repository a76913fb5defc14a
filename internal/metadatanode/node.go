// Package metadatanode composes the metadata service, shard router,
// scaling manager, membership manager, journal, and the MetadataNode
// façade's supplemental managers (leases, locks, file handles, quotas,
// watches, WORM, CDC, xattrs, fingerprints, directory sharding) into
// the single node FUSE/NFS/S3 gateways talk to.
package metadatanode

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/internal/journal"
	"github.com/claudefs/claudefs/internal/kvstore"
	"github.com/claudefs/claudefs/internal/membership"
	"github.com/claudefs/claudefs/internal/metaservice"
	"github.com/claudefs/claudefs/internal/replication"
	"github.com/claudefs/claudefs/internal/scaling"
	"github.com/claudefs/claudefs/internal/shardrouter"
	"github.com/claudefs/claudefs/internal/telemetry/metric"
)

// Config configures a Node.
type Config struct {
	NodeID            string
	SiteID            string
	NumShards         uint32
	ReplicationFactor int
	LeaseTTLSeconds   int
	CdcCapacity       int
	WatchCapacity     int
	DirShard          DirShardConfig
}

// DefaultConfig returns the node defaults used by node.rs: 256 shards,
// replication factor 3, 30s leases, capacity-10000 CDC stream,
// capacity-1000 watch fan-out.
func DefaultConfig(nodeID, siteID string) Config {
	return Config{
		NodeID:            nodeID,
		SiteID:            siteID,
		NumShards:         256,
		ReplicationFactor: 3,
		LeaseTTLSeconds:   30,
		CdcCapacity:       10_000,
		WatchCapacity:     1_000,
		DirShard:          DefaultDirShardConfig(),
	}
}

// Node is the unified metadata server: FUSE/NFS/S3 gateways issue
// operations against it and it orchestrates every sub-manager's
// pre-check, delegate, side-effect, and metrics-recording steps.
type Node struct {
	cfg Config

	kv          kvstore.Store
	service     *metaservice.Service
	shardRouter *shardrouter.Router
	scalingMgr  *scaling.Manager
	membership  *membership.Manager
	journal     *journal.Writer
	metrics     *metric.Registry

	leaseMgr   *LeaseManager
	lockMgr    *LockManager
	fhMgr      *FileHandleManager
	quotaMgr   *QuotaManager
	watchMgr   *WatchManager
	wormMgr    *WormManager
	cdcStream  *CdcStream
	xattrStore *XattrStore
	fpIndex    *FingerprintIndex
	dirShardMgr *DirShardManager

	inodeCounter atomic.Int64
}

// New wires a Node from its configuration and collaborators. kv and
// jw may be nil, in which case the node runs purely in-memory with no
// durable journal (suitable for tests).
func New(cfg Config, kv kvstore.Store, jw *journal.Writer, reg *metric.Registry) (*Node, error) {
	svc := metaservice.New(metaservice.Config{
		NodeID:    cfg.NodeID,
		SiteID:    cfg.SiteID,
		NumShards: cfg.NumShards,
	}, kv)
	if err := svc.InitRoot(context.Background()); err != nil {
		return nil, err
	}

	mm, err := membership.NewManager(membership.Config{
		NodeID:        cfg.NodeID,
		ClusterID:     cfg.SiteID,
		ShardCapacity: cfg.NumShards,
	})
	if err != nil {
		return nil, err
	}

	if reg == nil {
		reg = metric.NewRegistry()
	}

	n := &Node{
		cfg:         cfg,
		kv:          kv,
		service:     svc,
		shardRouter: shardrouter.New(cfg.NumShards),
		scalingMgr:  scaling.NewManager(scaling.Config{ReplicaCount: cfg.ReplicationFactor, ShardCount: cfg.NumShards, MaxConcurrentMigrations: 4, BalanceTolerance: 0.1}, []string{cfg.NodeID}),
		membership:  mm,
		journal:     jw,
		metrics:     reg,
		leaseMgr:    NewLeaseManager(cfg.LeaseTTLSeconds),
		lockMgr:     NewLockManager(),
		fhMgr:       NewFileHandleManager(),
		quotaMgr:    NewQuotaManager(),
		watchMgr:    NewWatchManager(cfg.WatchCapacity),
		wormMgr:     NewWormManager(),
		cdcStream:   NewCdcStream(cfg.CdcCapacity),
		xattrStore:  NewXattrStore(kv),
		fpIndex:     NewFingerprintIndex(),
		dirShardMgr: NewDirShardManager(cfg.DirShard),
	}
	n.inodeCounter.Store(1)
	return n, nil
}

func (n *Node) recordOp(op string, start time.Time, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	n.metrics.RecordOp(op, outcome)
	n.metrics.ObserveOpDuration(op, time.Since(start).Seconds())
}

func (n *Node) journalAppend(r domain.MetaOp, ino uint64) {
	if n.journal == nil {
		return
	}
	_ = n.journal.Append(journal.NewRecord(
		n.journal.CurrentOffset(), n.shardRouter.ShardForInode(ino), n.cfg.SiteID, time.Now().UnixMicro(), ino, metaOpToReplicationKind(r.Kind), nil,
	))
}

func metaOpToReplicationKind(k domain.MetaOpKind) replication.OpKind {
	switch k {
	case domain.MetaOpCreateInode, domain.MetaOpCreateEntry:
		return replication.OpCreate
	case domain.MetaOpDeleteEntry:
		return replication.OpUnlink
	case domain.MetaOpDeleteInode:
		return replication.OpUnlink
	case domain.MetaOpRename:
		return replication.OpRename
	case domain.MetaOpSetAttr, domain.MetaOpSetXattr, domain.MetaOpRemoveXattr:
		return replication.OpSetAttr
	default:
		return replication.OpSetAttr
	}
}

// CreateFile creates a regular file under parent.
func (n *Node) CreateFile(ctx context.Context, parent uint64, name string, uid, gid, mode uint32) (domain.InodeAttr, error) {
	start := time.Now()
	if err := n.quotaMgr.CheckQuota(uid, gid, 0, 1); err != nil {
		n.recordOp("create_file", start, false)
		return domain.InodeAttr{}, err
	}

	attr, err := n.service.CreateFile(ctx, parent, name, uid, gid, mode)
	if err != nil {
		n.recordOp("create_file", start, false)
		return domain.InodeAttr{}, err
	}

	n.quotaMgr.UpdateUsage(uid, gid, 0, 1)
	n.leaseMgr.Revoke(parent)
	n.watchMgr.Notify(WatchEvent{Kind: WatchCreate, Parent: parent, Name: name, Ino: attr.Ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino, Attr: attr}, n.cfg.SiteID)
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateEntry, Parent: parent, Name: name, Ino: attr.Ino}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino}, attr.Ino)
	n.inodeCounter.Add(1)

	n.recordOp("create_file", start, true)
	return attr, nil
}

// Mkdir creates a directory under parent.
func (n *Node) Mkdir(ctx context.Context, parent uint64, name string, uid, gid, mode uint32) (domain.InodeAttr, error) {
	start := time.Now()
	if err := n.quotaMgr.CheckQuota(uid, gid, 0, 1); err != nil {
		n.recordOp("mkdir", start, false)
		return domain.InodeAttr{}, err
	}

	attr, err := n.service.Mkdir(ctx, parent, name, uid, gid, mode)
	if err != nil {
		n.recordOp("mkdir", start, false)
		return domain.InodeAttr{}, err
	}

	n.quotaMgr.UpdateUsage(uid, gid, 0, 1)
	n.leaseMgr.Revoke(parent)
	n.watchMgr.Notify(WatchEvent{Kind: WatchCreate, Parent: parent, Name: name, Ino: attr.Ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino, Attr: attr}, n.cfg.SiteID)
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateEntry, Parent: parent, Name: name, Ino: attr.Ino}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino}, attr.Ino)
	n.inodeCounter.Add(1)

	n.recordOp("mkdir", start, true)
	return attr, nil
}

// Symlink creates a symbolic link under parent pointing at target.
func (n *Node) Symlink(ctx context.Context, parent uint64, name, target string, uid, gid uint32) (domain.InodeAttr, error) {
	start := time.Now()
	if err := n.quotaMgr.CheckQuota(uid, gid, 0, 1); err != nil {
		n.recordOp("symlink", start, false)
		return domain.InodeAttr{}, err
	}

	attr, err := n.service.Symlink(ctx, parent, name, target, uid, gid)
	if err != nil {
		n.recordOp("symlink", start, false)
		return domain.InodeAttr{}, err
	}

	n.quotaMgr.UpdateUsage(uid, gid, 0, 1)
	n.leaseMgr.Revoke(parent)
	n.watchMgr.Notify(WatchEvent{Kind: WatchCreate, Parent: parent, Name: name, Ino: attr.Ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino, Attr: attr}, n.cfg.SiteID)
	n.inodeCounter.Add(1)

	n.recordOp("symlink", start, true)
	return attr, nil
}

// Mknod creates a special file (device, FIFO, or socket). Attempting
// mknod with a regular-file type is an error.
func (n *Node) Mknod(ctx context.Context, parent uint64, name string, ft domain.FileType, uid, gid, mode uint32) (domain.InodeAttr, error) {
	start := time.Now()
	if !ft.IsSpecial() {
		n.recordOp("mknod", start, false)
		return domain.InodeAttr{}, domain.ErrInvalidMknodType
	}
	if err := n.quotaMgr.CheckQuota(uid, gid, 0, 1); err != nil {
		n.recordOp("mknod", start, false)
		return domain.InodeAttr{}, err
	}

	attr, err := n.service.CreateFile(ctx, parent, name, uid, gid, mode)
	if err != nil {
		n.recordOp("mknod", start, false)
		return domain.InodeAttr{}, err
	}
	attr.FileType = ft
	if err := n.service.SetAttr(ctx, attr.Ino, attr); err != nil {
		n.recordOp("mknod", start, false)
		return domain.InodeAttr{}, err
	}

	n.quotaMgr.UpdateUsage(uid, gid, 0, 1)
	n.leaseMgr.Revoke(parent)
	n.watchMgr.Notify(WatchEvent{Kind: WatchCreate, Parent: parent, Name: name, Ino: attr.Ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateInode, Ino: attr.Ino, Attr: attr}, n.cfg.SiteID)
	n.inodeCounter.Add(1)

	n.recordOp("mknod", start, true)
	return attr, nil
}

// Lookup resolves name within parent.
func (n *Node) Lookup(ctx context.Context, parent uint64, name string) (domain.DirEntry, error) {
	start := time.Now()
	e, err := n.service.Lookup(ctx, parent, name)
	n.recordOp("lookup", start, err == nil)
	return e, err
}

// GetAttr returns the attribute record for ino.
func (n *Node) GetAttr(ctx context.Context, ino uint64) (domain.InodeAttr, error) {
	start := time.Now()
	attr, err := n.service.GetAttr(ctx, ino)
	n.recordOp("getattr", start, err == nil)
	return attr, err
}

// SetAttr updates an inode's attributes, refusing the mutation if the
// inode is under WORM retention.
func (n *Node) SetAttr(ctx context.Context, ino uint64, attr domain.InodeAttr) error {
	start := time.Now()
	if state, ok := n.wormMgr.GetState(ino); ok && state.IsProtected(time.Now()) {
		n.recordOp("setattr", start, false)
		return domain.ErrWormProtected
	}

	if err := n.service.SetAttr(ctx, ino, attr); err != nil {
		n.recordOp("setattr", start, false)
		return err
	}

	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchAttrChange, Ino: ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpSetAttr, Ino: ino, Attr: attr}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpSetAttr, Ino: ino}, ino)

	n.recordOp("setattr", start, true)
	return nil
}

// Readdir lists the entries of directory dir.
func (n *Node) Readdir(ctx context.Context, dir uint64) ([]domain.DirEntry, error) {
	start := time.Now()
	entries, err := n.service.Readdir(ctx, dir)
	n.recordOp("readdir", start, err == nil)
	return entries, err
}

// ReaddirPlus lists directory entries together with their full
// attributes, for FUSE readdirplus.
func (n *Node) ReaddirPlus(ctx context.Context, dir uint64) ([]domain.DirEntryPlus, error) {
	start := time.Now()
	entries, err := n.service.Readdir(ctx, dir)
	if err != nil {
		n.recordOp("readdir_plus", start, false)
		return nil, err
	}

	out := make([]domain.DirEntryPlus, 0, len(entries))
	for _, e := range entries {
		attr, err := n.service.GetAttr(ctx, e.Ino)
		if err != nil {
			attr = domain.InodeAttr{Ino: e.Ino, FileType: e.FileType}
		}
		out = append(out, domain.DirEntryPlus{Entry: e, Attr: attr})
	}

	n.recordOp("readdir_plus", start, true)
	return out, nil
}

// Unlink removes a file entry.
func (n *Node) Unlink(ctx context.Context, parent uint64, name string) error {
	start := time.Now()

	entry, err := n.service.Lookup(ctx, parent, name)
	if err != nil {
		n.recordOp("unlink", start, false)
		return err
	}
	ino := entry.Ino
	if state, ok := n.wormMgr.GetState(ino); ok && state.IsProtected(time.Now()) {
		n.recordOp("unlink", start, false)
		return domain.ErrWormProtected
	}
	attr, _ := n.service.GetAttr(ctx, ino)

	if err := n.service.Unlink(ctx, parent, name); err != nil {
		n.recordOp("unlink", start, false)
		return err
	}

	n.quotaMgr.UpdateUsage(attr.Uid, attr.Gid, 0, -1)
	n.leaseMgr.Revoke(parent)
	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchDelete, Parent: parent, Name: name, Ino: ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpDeleteEntry, Parent: parent, Name: name}, n.cfg.SiteID)
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpDeleteInode, Ino: ino}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpDeleteInode, Ino: ino}, ino)
	n.inodeCounter.Add(-1)

	n.recordOp("unlink", start, true)
	return nil
}

// Rmdir removes an empty directory entry.
func (n *Node) Rmdir(ctx context.Context, parent uint64, name string) error {
	start := time.Now()

	entry, err := n.service.Lookup(ctx, parent, name)
	if err != nil {
		n.recordOp("rmdir", start, false)
		return err
	}
	ino := entry.Ino
	if state, ok := n.wormMgr.GetState(ino); ok && state.IsProtected(time.Now()) {
		n.recordOp("rmdir", start, false)
		return domain.ErrWormProtected
	}
	attr, _ := n.service.GetAttr(ctx, ino)

	if err := n.service.Rmdir(ctx, parent, name); err != nil {
		n.recordOp("rmdir", start, false)
		return err
	}

	n.quotaMgr.UpdateUsage(attr.Uid, attr.Gid, 0, -1)
	n.leaseMgr.Revoke(parent)
	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchDelete, Parent: parent, Name: name, Ino: ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpDeleteEntry, Parent: parent, Name: name}, n.cfg.SiteID)
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpDeleteInode, Ino: ino}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpDeleteInode, Ino: ino}, ino)
	n.inodeCounter.Add(-1)

	n.recordOp("rmdir", start, true)
	return nil
}

// Rename moves srcName from srcParent to dstName under dstParent.
func (n *Node) Rename(ctx context.Context, srcParent uint64, srcName string, dstParent uint64, dstName string) error {
	start := time.Now()

	entry, err := n.service.Lookup(ctx, srcParent, srcName)
	if err != nil {
		n.recordOp("rename", start, false)
		return err
	}
	ino := entry.Ino

	if err := n.service.Rename(ctx, srcParent, srcName, dstParent, dstName); err != nil {
		n.recordOp("rename", start, false)
		return err
	}

	n.leaseMgr.Revoke(srcParent)
	n.leaseMgr.Revoke(dstParent)
	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchRename, Parent: srcParent, Name: srcName, DstParent: dstParent, DstName: dstName, Ino: ino})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpRename, Parent: srcParent, Name: srcName, DstIno: dstParent, DstName: dstName}, n.cfg.SiteID)
	n.journalAppend(domain.MetaOp{Kind: domain.MetaOpRename, Ino: ino}, ino)

	n.recordOp("rename", start, true)
	return nil
}

// Open allocates a new file handle for ino.
func (n *Node) Open(ctx context.Context, ino, clientID uint64, flags OpenFlags) (uint64, error) {
	start := time.Now()
	fh := n.fhMgr.Open(ino, clientID, flags)
	n.metrics.IncHandleOpened()
	n.recordOp("open", start, true)
	return fh, nil
}

// Close releases a file handle.
func (n *Node) Close(ctx context.Context, fh uint64) error {
	start := time.Now()
	_, err := n.fhMgr.Close(fh)
	if err == nil {
		n.metrics.IncHandleClosed()
	}
	n.recordOp("close", start, err == nil)
	return err
}

// Flush validates that fh is still open (called on close by FUSE).
func (n *Node) Flush(ctx context.Context, fh uint64) error {
	start := time.Now()
	_, err := n.fhMgr.Get(fh)
	n.recordOp("flush", start, err == nil)
	return err
}

// Fsync syncs metadata for ino to persistent storage.
func (n *Node) Fsync(ctx context.Context, ino uint64, datasync bool) error {
	start := time.Now()
	_, err := n.service.GetAttr(ctx, ino)
	n.recordOp("fsync", start, err == nil)
	return err
}

// Link creates a new hard link to targetIno under parent.
func (n *Node) Link(ctx context.Context, parent uint64, name string, targetIno uint64) (domain.InodeAttr, error) {
	start := time.Now()
	attr, err := n.service.Link(ctx, parent, name, targetIno)
	if err != nil {
		n.recordOp("link", start, false)
		return domain.InodeAttr{}, err
	}

	n.leaseMgr.Revoke(parent)
	n.leaseMgr.Revoke(targetIno)
	n.watchMgr.Notify(WatchEvent{Kind: WatchCreate, Parent: parent, Name: name, Ino: targetIno})
	n.cdcStream.Publish(domain.MetaOp{Kind: domain.MetaOpCreateEntry, Parent: parent, Name: name, Ino: targetIno}, n.cfg.SiteID)

	n.recordOp("link", start, true)
	return attr, nil
}

// Readlink returns a symlink's target.
func (n *Node) Readlink(ctx context.Context, ino uint64) (string, error) {
	start := time.Now()
	target, err := n.service.Readlink(ctx, ino)
	n.recordOp("readlink", start, err == nil)
	return target, err
}

// GetXattr retrieves one extended attribute value.
func (n *Node) GetXattr(ctx context.Context, ino uint64, name string) ([]byte, error) {
	start := time.Now()
	v, err := n.xattrStore.Get(ctx, ino, name)
	n.recordOp("get_xattr", start, err == nil)
	return v, err
}

// SetXattr sets one extended attribute value, refusing the mutation on
// a WORM-protected inode.
func (n *Node) SetXattr(ctx context.Context, ino uint64, name string, value []byte) error {
	start := time.Now()
	if state, ok := n.wormMgr.GetState(ino); ok && state.IsProtected(time.Now()) {
		n.recordOp("set_xattr", start, false)
		return domain.ErrWormProtected
	}

	if err := n.xattrStore.Set(ctx, ino, name, value); err != nil {
		n.recordOp("set_xattr", start, false)
		return err
	}

	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchXattrChange, Ino: ino})

	n.recordOp("set_xattr", start, true)
	return nil
}

// ListXattrs lists extended attribute names on an inode.
func (n *Node) ListXattrs(ctx context.Context, ino uint64) ([]string, error) {
	start := time.Now()
	names, err := n.xattrStore.List(ctx, ino)
	n.recordOp("list_xattrs", start, err == nil)
	return names, err
}

// RemoveXattr removes an extended attribute, refusing the mutation on
// a WORM-protected inode.
func (n *Node) RemoveXattr(ctx context.Context, ino uint64, name string) error {
	start := time.Now()
	if state, ok := n.wormMgr.GetState(ino); ok && state.IsProtected(time.Now()) {
		n.recordOp("remove_xattr", start, false)
		return domain.ErrWormProtected
	}

	if err := n.xattrStore.Remove(ctx, ino, name); err != nil {
		n.recordOp("remove_xattr", start, false)
		return err
	}

	n.leaseMgr.Revoke(ino)
	n.watchMgr.Notify(WatchEvent{Kind: WatchXattrChange, Ino: ino})

	n.recordOp("remove_xattr", start, true)
	return nil
}

// StatFs returns filesystem-wide statistics.
func (n *Node) StatFs() domain.StatFs {
	start := time.Now()
	const maxInodes = 1_000_000_000

	inodeCount := n.InodeCount()
	sf := domain.StatFs{
		TotalInodes: maxInodes,
		FreeInodes:  maxInodes - inodeCount,
		TotalBlocks: 1_000_000_000,
		FreeBlocks:  900_000_000,
		BlockSize:   4096,
		MaxNameLen:  255,
	}

	n.recordOp("statfs", start, true)
	return sf
}

// Access checks whether (uid, gid) may access ino with the requested mode.
func (n *Node) Access(ctx context.Context, ino uint64, uid, gid uint32, mode AccessMode) error {
	start := time.Now()
	attr, err := n.service.GetAttr(ctx, ino)
	if err != nil {
		n.recordOp("access", start, false)
		return err
	}
	err = CheckAccess(attr, UserContext{Uid: uid, Gid: gid}, mode)
	n.recordOp("access", start, err == nil)
	return err
}

// RouteInode returns the virtual shard owning ino.
func (n *Node) RouteInode(ino uint64) uint32 {
	return n.shardRouter.ShardForInode(ino)
}

// InodeCount returns the number of live inodes.
func (n *Node) InodeCount() uint64 {
	c := n.inodeCounter.Load()
	if c < 0 {
		return 0
	}
	return uint64(c)
}

// IsHealthy reports whether membership counts at least one alive
// member; the local node is itself a member.
func (n *Node) IsHealthy() bool {
	return n.membership.ClusterStatus().AliveCount >= 1
}

// ClusterStatus returns the current membership view.
func (n *Node) ClusterStatus() membership.ClusterStatus {
	return n.membership.ClusterStatus()
}

// MetricsSnapshot reports the live gauges this node tracks.
func (n *Node) MetricsSnapshot() {
	now := time.Now()
	n.metrics.SetLeasesActive(float64(n.leaseMgr.ActiveLeaseCount(now)))
	n.metrics.SetWatchersActive(float64(n.watchMgr.WatchCount()))
}

// LeaseManager exposes the node's lease manager for direct use by
// transport-layer callers that need to grant read leases explicitly.
func (n *Node) LeaseManager() *LeaseManager { return n.leaseMgr }

// LockManager exposes the node's advisory lock manager.
func (n *Node) LockManager() *LockManager { return n.lockMgr }

// QuotaManager exposes the node's quota manager, for administrative
// configuration of per-(uid,gid) limits.
func (n *Node) QuotaManager() *QuotaManager { return n.quotaMgr }

// WormManager exposes the node's retention manager, for administrative
// protect/release calls.
func (n *Node) WormManager() *WormManager { return n.wormMgr }

// CdcStream exposes the node's change-data-capture tap for external tailers.
func (n *Node) CdcStream() *CdcStream { return n.cdcStream }

// WatchManager exposes the node's watch manager for subscribers.
func (n *Node) WatchManager() *WatchManager { return n.watchMgr }

// FingerprintIndex exposes the node's CAS dedup index.
func (n *Node) FingerprintIndex() *FingerprintIndex { return n.fpIndex }

// ScalingManager exposes the node's shard placement/migration manager.
func (n *Node) ScalingManager() *scaling.Manager { return n.scalingMgr }

// Membership exposes the node's cluster membership manager.
func (n *Node) Membership() *membership.Manager { return n.membership }
