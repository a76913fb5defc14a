package metaservice

import (
	"context"
	"testing"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/internal/kvstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := New(Config{NodeID: "n1", SiteID: "site-a", NumShards: 256}, kvstore.NewMemoryStore())
	if err := s.InitRoot(context.Background()); err != nil {
		t.Fatalf("InitRoot: %v", err)
	}
	return s
}

func TestCreateFileAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	attr, err := s.CreateFile(ctx, rootIno, "hello.txt", 100, 100, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if attr.FileType != domain.FileRegular {
		t.Errorf("file type = %v, want Regular", attr.FileType)
	}

	entry, err := s.Lookup(ctx, rootIno, "hello.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Ino != attr.Ino {
		t.Errorf("lookup ino = %d, want %d", entry.Ino, attr.Ino)
	}

	if _, err := s.CreateFile(ctx, rootIno, "hello.txt", 100, 100, 0o644); !domain.Is(err, "CFS-META-4090") {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
}

func TestMkdirRequiresParentDir(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	f, err := s.CreateFile(ctx, rootIno, "f", 0, 0, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := s.Mkdir(ctx, f.Ino, "sub", 0, 0, 0o755); !domain.Is(err, "CFS-META-4001") {
		t.Errorf("expected NotDirectory, got %v", err)
	}
}

func TestUnlinkDestroysInodeAtZeroNlink(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	f, err := s.CreateFile(ctx, rootIno, "f", 0, 0, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := s.Unlink(ctx, rootIno, "f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := s.GetAttr(ctx, f.Ino); !domain.Is(err, "CFS-META-4040") {
		t.Errorf("expected NotFound after unlink, got %v", err)
	}
	if _, err := s.Lookup(ctx, rootIno, "f"); !domain.Is(err, "CFS-META-4040") {
		t.Errorf("expected NotFound for removed entry, got %v", err)
	}
}

func TestRmdirRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	d, err := s.Mkdir(ctx, rootIno, "d", 0, 0, 0o755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := s.CreateFile(ctx, d.Ino, "inner", 0, 0, 0o644); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := s.Rmdir(ctx, rootIno, "d"); !domain.Is(err, "CFS-META-4091") {
		t.Errorf("expected NotEmpty, got %v", err)
	}
	if err := s.Unlink(ctx, d.Ino, "inner"); err != nil {
		t.Fatalf("Unlink inner: %v", err)
	}
	if err := s.Rmdir(ctx, rootIno, "d"); err != nil {
		t.Errorf("Rmdir after empty: %v", err)
	}
}

func TestRenameMovesEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	f, err := s.CreateFile(ctx, rootIno, "a", 0, 0, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	dst, err := s.Mkdir(ctx, rootIno, "dst", 0, 0, 0o755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := s.Rename(ctx, rootIno, "a", dst.Ino, "b"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := s.Lookup(ctx, rootIno, "a"); err == nil {
		t.Error("expected source entry to be gone")
	}
	entry, err := s.Lookup(ctx, dst.Ino, "b")
	if err != nil {
		t.Fatalf("Lookup dst: %v", err)
	}
	if entry.Ino != f.Ino {
		t.Errorf("renamed entry ino = %d, want %d", entry.Ino, f.Ino)
	}
}

func TestLinkRejectsDirectories(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	d, err := s.Mkdir(ctx, rootIno, "d", 0, 0, 0o755)
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := s.Link(ctx, rootIno, "d2", d.Ino); !domain.Is(err, "CFS-META-4008") {
		t.Errorf("expected LinkIsDirectory, got %v", err)
	}
}

func TestLinkIncrementsNlink(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	f, err := s.CreateFile(ctx, rootIno, "f", 0, 0, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	attr, err := s.Link(ctx, rootIno, "f2", f.Ino)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if attr.Nlink != 2 {
		t.Errorf("Nlink = %d, want 2", attr.Nlink)
	}
	if err := s.Unlink(ctx, rootIno, "f"); err != nil {
		t.Fatalf("Unlink f: %v", err)
	}
	if _, err := s.GetAttr(ctx, f.Ino); err != nil {
		t.Errorf("inode should survive with one remaining link, got %v", err)
	}
}

func TestSymlinkAndReadlink(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	l, err := s.Symlink(ctx, rootIno, "link", "/target/path", 0, 0)
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	target, err := s.Readlink(ctx, l.Ino)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "/target/path" {
		t.Errorf("target = %q, want /target/path", target)
	}

	f, err := s.CreateFile(ctx, rootIno, "f", 0, 0, 0o644)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := s.Readlink(ctx, f.Ino); !domain.Is(err, "CFS-META-4007") {
		t.Errorf("expected NotSymlink, got %v", err)
	}
}

func TestInodeCount(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	before := s.InodeCount()
	if _, err := s.CreateFile(ctx, rootIno, "f", 0, 0, 0o644); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if s.InodeCount() != before+1 {
		t.Errorf("InodeCount = %d, want %d", s.InodeCount(), before+1)
	}
}
