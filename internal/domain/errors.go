// Package domain defines the structured error taxonomy shared by every
// component of the metadata and storage plane.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is a structured error with a stable, loggable code.
type DomainError struct {
	Code    string // e.g. "CFS-META-4040"
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Cause }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// Wrap is an alias for WithCause, kept for readability at call sites.
func (e *DomainError) Wrap(cause error) *DomainError { return e.WithCause(cause) }

// Is reports whether err is a *DomainError with the given code. An empty
// code only checks that err is a *DomainError.
func Is(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// Code extracts the error code from err if it is a *DomainError.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Raft core errors (CFS-RAFT)
// ============================================================================

var (
	ErrNotLeader     = NewDomainError("CFS-RAFT-4090", "not the current leader")
	ErrStaleTerm     = NewDomainError("CFS-RAFT-4091", "stale term")
	ErrLogMismatch   = NewDomainError("CFS-RAFT-4092", "previous log entry mismatch")
	ErrAlreadyVoted  = NewDomainError("CFS-RAFT-4093", "already voted this term")
	ErrElectionTimer = NewDomainError("CFS-RAFT-4094", "election not yet due")
)

// ============================================================================
// Metadata service errors (CFS-META)
// ============================================================================

var (
	ErrNotFound          = NewDomainError("CFS-META-4040", "inode or entry not found")
	ErrNotDirectory      = NewDomainError("CFS-META-4001", "not a directory")
	ErrIsDirectory       = NewDomainError("CFS-META-4002", "is a directory")
	ErrNotEmpty          = NewDomainError("CFS-META-4091", "directory not empty")
	ErrAlreadyExists     = NewDomainError("CFS-META-4090", "entry already exists")
	ErrPermissionDenied  = NewDomainError("CFS-META-4030", "permission denied")
	ErrQuotaExceeded     = NewDomainError("CFS-META-4291", "quota exceeded")
	ErrInvalidMknodType  = NewDomainError("CFS-META-4003", "mknod requires a device, fifo, or socket type")
	ErrWormProtected     = NewDomainError("CFS-META-4031", "inode under retention, mutation denied")
	ErrHandleNotFound    = NewDomainError("CFS-META-4041", "file handle not found")
	ErrCrossShardPending = NewDomainError("CFS-META-4092", "cross-shard rename has a pending dangling entry")
	ErrNotSymlink        = NewDomainError("CFS-META-4007", "not a symlink")
	ErrLinkIsDirectory   = NewDomainError("CFS-META-4008", "directories cannot be hard-linked")
	ErrXattrNotFound     = NewDomainError("CFS-META-4049", "extended attribute not found")
	ErrLockHeld          = NewDomainError("CFS-META-4094", "inode already locked by another client")
	ErrNotLocked         = NewDomainError("CFS-META-4050", "inode not locked")
)

// ============================================================================
// Shard router / scaling errors (CFS-SHARD)
// ============================================================================

var (
	ErrNoNodesAvailable  = NewDomainError("CFS-SHARD-5031", "no nodes available for placement")
	ErrMigrationNotFound = NewDomainError("CFS-SHARD-4042", "migration task not found")
	ErrMigrationConflict = NewDomainError("CFS-SHARD-4093", "shard already migrating")
)

// ============================================================================
// Replication errors (CFS-REPL)
// ============================================================================

var (
	ErrSequenceGap    = NewDomainError("CFS-REPL-4093", "replication sequence gap detected")
	ErrConflictLWW    = NewDomainError("CFS-REPL-4094", "last-writer-wins conflict resolved")
	ErrCursorNotFound = NewDomainError("CFS-REPL-4043", "replication cursor not found")
)

// ============================================================================
// Block cache errors (CFS-CACHE)
// ============================================================================

var (
	ErrCacheFull    = NewDomainError("CFS-CACHE-5032", "cache at capacity, no evictable entry")
	ErrEntryPinned  = NewDomainError("CFS-CACHE-4095", "entry pinned, cannot evict")
	ErrCacheMiss    = NewDomainError("CFS-CACHE-4044", "block not present in cache")
)

// ============================================================================
// Erasure coding errors (CFS-EC)
// ============================================================================

var (
	ErrTooManyMissing  = NewDomainError("CFS-EC-5033", "too many missing shards to reconstruct")
	ErrInvalidProfile  = NewDomainError("CFS-EC-4004", "invalid erasure coding profile")
	ErrShardChecksum   = NewDomainError("CFS-EC-4221", "shard checksum mismatch")
	ErrStripeNotReady  = NewDomainError("CFS-EC-4096", "stripe not in a decodable state")
)

// ============================================================================
// Recovery errors (CFS-RECOVERY)
// ============================================================================

var (
	ErrSuperblockCorrupt  = NewDomainError("CFS-RECOVERY-4222", "superblock checksum mismatch")
	ErrCheckpointCorrupt  = NewDomainError("CFS-RECOVERY-4223", "journal checkpoint checksum mismatch")
	ErrCheckpointMagic    = NewDomainError("CFS-RECOVERY-4224", "journal checkpoint magic mismatch")
	ErrRecoveryOutOfOrder = NewDomainError("CFS-RECOVERY-4097", "recovery phase invoked out of order")
)

// ============================================================================
// SMART / health errors (CFS-SMART)
// ============================================================================

var (
	ErrDeviceUnknown = NewDomainError("CFS-SMART-4045", "device not tracked by monitor")
)

// ============================================================================
// Integrity chain errors (CFS-INTEGRITY)
// ============================================================================

var (
	ErrChainNotFound  = NewDomainError("CFS-INTEGRITY-4046", "integrity chain not found")
	ErrChainExpired   = NewDomainError("CFS-INTEGRITY-4098", "integrity chain expired")
	ErrMissingPoint   = NewDomainError("CFS-INTEGRITY-4047", "verification point missing for stage")
	ErrCorrupt        = NewDomainError("CFS-INTEGRITY-4225", "integrity verification failed")
	ErrUnknownAlgo    = NewDomainError("CFS-INTEGRITY-4005", "unknown integrity algorithm")
)

// ============================================================================
// Journal errors (CFS-JOURNAL)
// ============================================================================

var (
	ErrJournalCorrupt  = NewDomainError("CFS-JOURNAL-4226", "journal entry checksum mismatch")
	ErrJournalClosed   = NewDomainError("CFS-JOURNAL-5034", "journal writer is closed")
	ErrInvalidMagic    = NewDomainError("CFS-JOURNAL-4227", "journal segment magic mismatch")
)

// ============================================================================
// Membership errors (CFS-MEMBER)
// ============================================================================

var (
	ErrNodeUnknown    = NewDomainError("CFS-MEMBER-4048", "node not known to membership manager")
	ErrSelfJoin       = NewDomainError("CFS-MEMBER-4006", "node cannot join itself")
)

// ============================================================================
// Generic system / argument errors (CFS-SYS, CFS-ARG)
// ============================================================================

var (
	ErrInternal        = NewDomainError("CFS-SYS-5000", "internal error")
	ErrInvalidArgument = NewDomainError("CFS-ARG-1001", "invalid argument")
	ErrMissingArgument = NewDomainError("CFS-ARG-1002", "missing required argument")
)
