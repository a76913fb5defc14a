package domain

import "time"

// FileType enumerates the POSIX inode types the metadata service tracks.
type FileType int

const (
	FileRegular FileType = iota
	FileDir
	FileSymlink
	FileFifo
	FileSocket
	FileBlockDev
	FileCharDev
)

func (t FileType) String() string {
	switch t {
	case FileRegular:
		return "regular"
	case FileDir:
		return "dir"
	case FileSymlink:
		return "symlink"
	case FileFifo:
		return "fifo"
	case FileSocket:
		return "socket"
	case FileBlockDev:
		return "blockdev"
	case FileCharDev:
		return "chardev"
	default:
		return "unknown"
	}
}

// IsSpecial reports whether t is one of the device/fifo/socket types
// mknod is restricted to.
func (t FileType) IsSpecial() bool {
	switch t {
	case FileBlockDev, FileCharDev, FileFifo, FileSocket:
		return true
	default:
		return false
	}
}

// InodeAttr is the attribute record for one inode.
type InodeAttr struct {
	Ino           uint64
	FileType      FileType
	Uid           uint32
	Gid           uint32
	Mode          uint32
	Size          uint64
	Nlink         uint32
	Atime         time.Time
	Mtime         time.Time
	Ctime         time.Time
	SymlinkTarget string
}

// NewFileAttr builds the InodeAttr for a newly created regular file.
func NewFileAttr(ino uint64, uid, gid, mode uint32, now time.Time) InodeAttr {
	return InodeAttr{
		Ino:      ino,
		FileType: FileRegular,
		Uid:      uid,
		Gid:      gid,
		Mode:     mode,
		Nlink:    1,
		Atime:    now,
		Mtime:    now,
		Ctime:    now,
	}
}

// DirEntry is one name -> inode mapping within a parent directory.
type DirEntry struct {
	Name     string
	Ino      uint64
	FileType FileType
}

// DirEntryPlus pairs a directory entry with its full inode attributes,
// for FUSE-style readdirplus.
type DirEntryPlus struct {
	Entry DirEntry
	Attr  InodeAttr
}

// MetaOpKind discriminates the MetaOp sum type applied by the metadata
// state machine and tailed by replication/CDC.
type MetaOpKind int

const (
	MetaOpCreateInode MetaOpKind = iota
	MetaOpCreateEntry
	MetaOpDeleteEntry
	MetaOpDeleteInode
	MetaOpSetAttr
	MetaOpRename
	MetaOpSetXattr
	MetaOpRemoveXattr
)

func (k MetaOpKind) String() string {
	switch k {
	case MetaOpCreateInode:
		return "create_inode"
	case MetaOpCreateEntry:
		return "create_entry"
	case MetaOpDeleteEntry:
		return "delete_entry"
	case MetaOpDeleteInode:
		return "delete_inode"
	case MetaOpSetAttr:
		return "set_attr"
	case MetaOpRename:
		return "rename"
	case MetaOpSetXattr:
		return "set_xattr"
	case MetaOpRemoveXattr:
		return "remove_xattr"
	default:
		return "unknown"
	}
}

// MetaOp is the unit of work applied to the in-memory state and
// journaled for recovery and replication. Only the fields relevant to
// Kind are populated.
type MetaOp struct {
	Kind    MetaOpKind
	Ino     uint64
	Parent  uint64
	Name    string
	DstName string
	DstIno  uint64
	Attr    InodeAttr
	Entry   DirEntry
	XattrK  string
	XattrV  []byte
}

// StatFs mirrors the classic POSIX statfs(2) summary.
type StatFs struct {
	TotalInodes uint64
	FreeInodes  uint64
	TotalBlocks uint64
	FreeBlocks  uint64
	BlockSize   uint32
	MaxNameLen  uint32
}
