package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/claudefs/claudefs/internal/telemetry/logger"
)

// BadgerStore implements Store using Badger v3, the on-disk engine for
// production deployments.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger logger.Logger

	lastGCTime       atomic.Int64
	gcBytesReclaimed atomic.Uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens (or creates) a Badger-backed store at cfg.Dir.
func NewBadgerStore(cfg Config, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("kvstore: badger dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	badgerCfg := cfg.Badger
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogAdapter{logger: log}
	opts.BlockCacheSize = badgerCfg.CacheSize
	opts.ValueLogFileSize = badgerCfg.ValueLogFileSize
	opts.SyncWrites = badgerCfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open badger: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    badgerCfg,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	log.Info("badger store opened", "dir", cfg.Dir, "cache_size", badgerCfg.CacheSize)
	return s, nil
}

func (s *BadgerStore) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BadgerStore) Set(_ context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) Delete(_ context.Context, key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStore) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				break
			}
		}
		return nil
	})
}

func (s *BadgerStore) SaveSnapshot(_ context.Context) (io.ReadCloser, error) {
	tmpFile, err := os.CreateTemp("", "claudefs-kv-snapshot-*.bak")
	if err != nil {
		return nil, fmt.Errorf("kvstore: create temp file: %w", err)
	}

	if _, err := s.db.Backup(tmpFile, 0); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("kvstore: backup: %w", err)
	}
	if _, err := tmpFile.Seek(0, 0); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("kvstore: seek: %w", err)
	}

	return &autoDeleteReader{ReadCloser: tmpFile, path: tmpFile.Name()}, nil
}

func (s *BadgerStore) LoadSnapshot(_ context.Context, r io.Reader) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("kvstore: close current db: %w", err)
	}

	dir := s.db.Opts().Dir
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("kvstore: remove existing data: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("kvstore: create db dir: %w", err)
	}

	db, err := badger.Open(s.db.Opts())
	if err != nil {
		return fmt.Errorf("kvstore: reopen db: %w", err)
	}
	if err := db.Load(r, 256); err != nil {
		db.Close()
		return fmt.Errorf("kvstore: load snapshot: %w", err)
	}

	s.db = db
	s.logger.Info("snapshot restored")
	return nil
}

func (s *BadgerStore) GC(_ context.Context) (uint64, error) {
	startTime := time.Now()
	var reclaimed uint64
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return reclaimed, fmt.Errorf("kvstore: gc: %w", err)
		}
		reclaimed += 1 << 20
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcBytesReclaimed.Add(reclaimed)
	s.logger.Info("gc completed", "bytes_reclaimed", reclaimed, "elapsed", time.Since(startTime))
	return reclaimed, nil
}

func (s *BadgerStore) Stats(_ context.Context) (*Stats, error) {
	lsm, vlog := s.db.Size()
	return &Stats{
		TotalSize:        uint64(lsm + vlog),
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTimeMillis: s.lastGCTime.Load(),
		GCBytesReclaimed: s.gcBytesReclaimed.Load(),
	}, nil
}

func (s *BadgerStore) Close() error {
	s.logger.Info("shutting down badger store")
	close(s.stopCh)
	<-s.doneCh
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("kvstore: close db: %w", err)
	}
	return nil
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval := time.Duration(s.cfg.GCIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

type autoDeleteReader struct {
	io.ReadCloser
	path string
}

func (r *autoDeleteReader) Close() error {
	err1 := r.ReadCloser.Close()
	err2 := os.Remove(r.path)
	if err1 != nil {
		return err1
	}
	return err2
}

// badgerLogAdapter adapts our Logger interface to Badger's Logger interface.
type badgerLogAdapter struct {
	logger logger.Logger
}

func (l *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
func (l *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *badgerLogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
func (l *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// New creates a Store per cfg.Engine ("badger" or "memory").
func New(cfg Config, log logger.Logger) (Store, error) {
	switch cfg.Engine {
	case "", "badger":
		return NewBadgerStore(cfg, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("kvstore: unknown engine %q", cfg.Engine)
	}
}
