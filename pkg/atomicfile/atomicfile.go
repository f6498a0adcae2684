// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

/*
Package atomicfile provides atomic file materialization.

Expensive build operations (image resize, cbz assembly, torrent creation)
must never leave a partially-written file at its final path. Every writer in
this codebase produces its output in a sibling temp file and renames it into
place; rename within one directory is atomic on POSIX filesystems.
*/
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTo materializes dstPath atomically. build receives a temp path in the
// same directory; on success the temp file is renamed over dstPath, on error
// it is removed.
func WriteTo(dstPath string, build func(tmpPath string) error) error {
	dir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicfile: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*"+filepath.Ext(dstPath))
	if err != nil {
		return fmt.Errorf("atomicfile: temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	// The builder reopens the path itself; we only needed the name.
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: close temp: %w", err)
	}

	if err := build(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: rename into place: %w", err)
	}

	return nil
}

// CopyTo atomically copies srcPath to dstPath.
func CopyTo(dstPath, srcPath string) error {
	return WriteTo(dstPath, func(tmpPath string) error {
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("atomicfile: read %s: %w", srcPath, err)
		}
		if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
			return fmt.Errorf("atomicfile: write %s: %w", tmpPath, err)
		}
		return nil
	})
}
