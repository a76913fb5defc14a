// Package shardrouter maps inodes to virtual shards. The mapping is a
// pure, total function of the inode number and the shard count — no
// state, no network calls, safe to call from any goroutine without
// synchronization.
package shardrouter

// Router maps inode numbers to shard indices.
type Router struct {
	shardCount uint32
}

// New returns a Router over shardCount virtual shards. Panics if
// shardCount is zero, since shard_for_inode would divide by zero.
func New(shardCount uint32) *Router {
	if shardCount == 0 {
		panic("shardrouter: shardCount must be > 0")
	}
	return &Router{shardCount: shardCount}
}

// ShardCount returns the number of virtual shards.
func (r *Router) ShardCount() uint32 {
	return r.shardCount
}

// ShardForInode returns the shard index owning ino: ino mod N.
func (r *Router) ShardForInode(ino uint64) uint32 {
	return uint32(ino % uint64(r.shardCount))
}
