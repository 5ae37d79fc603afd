// Package snapshot periodically compresses the live market's account
// buffer and writes it to disk, giving an operator a point-in-time
// backup to replay a market from without needing to pull a Postgres
// dump of the full audit ledger.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Source is the thing a Manager snapshots: internal/processor.Processor
// satisfies it without internal/processor importing this package.
type Source interface {
	Name() string
	Snapshot() []byte
}

// Config controls where and how often snapshots are taken.
type Config struct {
	// Dir is the directory snapshot files are written into. Created if
	// it doesn't exist.
	Dir string
	// Interval is how often a snapshot is taken.
	Interval time.Duration
	// Retain is how many snapshot files are kept per market; older
	// ones are deleted after each run.
	Retain int
}

// Manager takes and retains periodic snapshots of one Source.
type Manager struct {
	cfg    Config
	source Source
	logger *zap.Logger

	encoderPool sync.Pool
}

// NewManager builds a Manager. The zstd encoder is pooled the way the
// teacher pools its zlib/gzip/zstd writers, since a snapshot pass runs
// on a fixed ticker and the encoder would otherwise be rebuilt from
// scratch every time.
func NewManager(cfg Config, source Source, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		source: source,
		logger: logger,
		encoderPool: sync.Pool{
			New: func() interface{} {
				enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
				return enc
			},
		},
	}
}

// Run blocks, taking a snapshot on every tick until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Take(); err != nil {
				m.logger.Warn("snapshot: take failed", zap.Error(err), zap.String("market", m.source.Name()))
			}
		}
	}
}

// Take captures and writes one snapshot, then prunes old ones.
func (m *Manager) Take() error {
	raw := m.source.Snapshot()

	enc := m.encoderPool.Get().(*zstd.Encoder)
	defer m.encoderPool.Put(enc)

	var buf []byte
	buf = enc.EncodeAll(raw, buf)

	name := fmt.Sprintf("%s-%d.snap.zst", m.source.Name(), time.Now().UnixNano())
	path := filepath.Join(m.cfg.Dir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}

	m.logger.Info("snapshot: wrote market snapshot",
		zap.String("market", m.source.Name()),
		zap.String("path", path),
		zap.Int("raw_bytes", len(raw)),
		zap.Int("compressed_bytes", len(buf)),
	)

	return m.prune()
}

func (m *Manager) prune() error {
	pattern := filepath.Join(m.cfg.Dir, m.source.Name()+"-*.snap.zst")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) <= m.cfg.Retain {
		return nil
	}

	sort.Strings(matches) // filenames embed UnixNano, so lexical order is chronological
	stale := matches[:len(matches)-m.cfg.Retain]
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			m.logger.Warn("snapshot: failed to prune old snapshot", zap.Error(err), zap.String("path", path))
		}
	}
	return nil
}

// Load decompresses a snapshot file back into a raw account buffer,
// for an operator restoring a market from backup.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
