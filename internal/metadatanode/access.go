package metadatanode

import "github.com/claudefs/claudefs/internal/domain"

// AccessMode is the R_OK/W_OK/X_OK bitmask requested by access(2).
type AccessMode uint32

const (
	AccessRead    AccessMode = 0o4
	AccessWrite   AccessMode = 0o2
	AccessExecute AccessMode = 0o1
)

// UserContext is the caller's credentials for a permission check.
type UserContext struct {
	Uid    uint32
	Gid    uint32
	Groups []uint32
}

func (c UserContext) isInGroup(gid uint32) bool {
	if c.Gid == gid {
		return true
	}
	for _, g := range c.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// CheckAccess implements the standard POSIX owner/group/other
// permission-bit test: root (uid 0) always passes.
func CheckAccess(attr domain.InodeAttr, ctx UserContext, mode AccessMode) error {
	if ctx.Uid == 0 {
		return nil
	}

	var bits uint32
	switch {
	case ctx.Uid == attr.Uid:
		bits = (attr.Mode >> 6) & 0o7
	case ctx.isInGroup(attr.Gid):
		bits = (attr.Mode >> 3) & 0o7
	default:
		bits = attr.Mode & 0o7
	}

	if uint32(mode)&bits != uint32(mode) {
		return domain.ErrPermissionDenied
	}
	return nil
}
