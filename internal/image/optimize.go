package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zcomx/zcomix/internal/platform/constants"
	"github.com/zcomx/zcomix/pkg/atomicfile"
)

// optimizeLogTTL is how long an optimization record is remembered. A file
// re-optimized within this window short-circuits.
const optimizeLogTTL = 30 * 24 * time.Hour

// OptimizeService applies best-effort lossless size reduction to stored
// derivatives. Completed optimizations are logged in Redis keyed by content
// hash so repeat requests short-circuit.
//
// Optimization is queued work, never inline with uploads.
type OptimizeService struct {
	store     *Store
	optimizer Optimizer
	rdb       *redis.Client
	log       *slog.Logger
}

// NewOptimizeService wires an OptimizeService. optimizer may be nil, in
// which case the built-in PNG recompressor is used.
func NewOptimizeService(store *Store, optimizer Optimizer, rdb *redis.Client, log *slog.Logger) *OptimizeService {
	if optimizer == nil {
		optimizer = &pngRecompressor{}
	}
	return &OptimizeService{store: store, optimizer: optimizer, rdb: rdb, log: log}
}

// OptimizeRef optimizes every existing derivative of ref except the
// original, which is kept byte-for-byte as uploaded.
func (o *OptimizeService) OptimizeRef(ctx context.Context, ref Ref) error {
	for _, size := range []Size{SizeCBZ, SizeWeb, SizeTbn} {
		if !o.store.HasSize(ref, size) {
			continue
		}
		if err := o.Optimize(ctx, o.store.Path(ref, size)); err != nil {
			return err
		}
	}
	return nil
}

// Optimize reduces the file at path in place if a smaller lossless encoding
// exists. Idempotent: a file already optimized (same content hash) is
// skipped via the Redis log.
func (o *OptimizeService) Optimize(ctx context.Context, path string) error {
	hash, err := contentHash(path)
	if err != nil {
		return err
	}

	logKey := constants.RedisPrefixOptimizeLog + hash
	if o.rdb != nil {
		// SETNX returns false when the key exists: already optimized.
		fresh, err := o.rdb.SetNX(ctx, logKey, time.Now().UTC().Format(time.RFC3339), optimizeLogTTL).Result()
		if err == nil && !fresh {
			o.log.Debug("optimize_short_circuit", slog.String("path", path))
			return nil
		}
	}

	before, err := fileSize(path)
	if err != nil {
		return err
	}

	if err := o.optimizer.Optimize(path); err != nil {
		// Best effort: failure to shrink is logged, not fatal.
		o.log.Warn("optimize_failed", slog.String("path", path), slog.Any("error", err))
		return nil
	}

	after, err := fileSize(path)
	if err != nil {
		return err
	}

	// Record the post-optimization content so the next request for the
	// optimized bytes also short-circuits.
	if o.rdb != nil {
		if newHash, err := contentHash(path); err == nil {
			o.rdb.SetNX(ctx, constants.RedisPrefixOptimizeLog+newHash, time.Now().UTC().Format(time.RFC3339), optimizeLogTTL)
		}
	}

	o.log.Info("image_optimized",
		slog.String("path", path),
		slog.Int64("bytes_before", before),
		slog.Int64("bytes_after", after),
	)

	return nil
}

// pngRecompressor is the in-process Optimizer: PNG files are re-encoded at
// best compression and replaced only when smaller. Other formats are left
// untouched; production deployments can swap in an adapter that shells out
// to dedicated tools at lowered OS priority.
type pngRecompressor struct{}

func (r *pngRecompressor) Optimize(path string) error {
	if strings.ToLower(filepath.Ext(path)) != ".png" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("image: open %s: %w", path, err)
	}
	img, err := png.Decode(file)
	file.Close()
	if err != nil {
		return ErrUnsupportedFormat
	}

	before, err := fileSize(path)
	if err != nil {
		return err
	}

	tmpPath := path + ".opt"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(out, img); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	after, err := fileSize(tmpPath)
	if err != nil || after >= before {
		os.Remove(tmpPath)
		return err
	}

	err = atomicfile.CopyTo(path, tmpPath)
	os.Remove(tmpPath)
	return err
}

func contentHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("image: read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("image: stat %s: %w", path, err)
	}
	return info.Size(), nil
}
