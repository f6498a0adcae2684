package image

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zcomx/zcomix/pkg/atomicfile"
)

// Store is the content-addressed image store. Derivatives for a reference
// live at <root>/<size>/<table>.<field>/<shard>/<ref>.
//
// Within a single size class and key only the Store mutates files; all
// other writers go through it.
type Store struct {
	root      string
	processor *Processor
	resizer   Resizer
	log       *slog.Logger
}

// NewStore returns a Store rooted at root. resizer may be nil, in which
// case the in-process Processor renders derivatives.
func NewStore(root string, processor *Processor, resizer Resizer, log *slog.Logger) *Store {
	if resizer == nil {
		resizer = processor
	}
	return &Store{root: root, processor: processor, resizer: resizer, log: log}
}

// Root returns the uploads root directory.
func (s *Store) Root() string { return s.root }

// Path returns the absolute path of the derivative file for ref at size.
// The file may not exist; see HasSize.
func (s *Store) Path(ref Ref, size Size) string {
	name := ref.String()
	// Derivative extension may differ from the original (gif → png).
	if ext := ref.DerivativeExt(size); ext != ref.Ext() {
		name = name[:len(name)-len(ref.Ext())+1] + ext[1:]
	}
	return filepath.Join(s.root, string(size), ref.FieldName(), ref.Shard(), name)
}

// HasSize reports whether the derivative file for ref at size exists.
func (s *Store) HasSize(ref Ref, size Size) bool {
	_, err := os.Stat(s.Path(ref, size))
	return err == nil
}

// Store validates the upload at path, allocates a reference, copies the
// original into place, and renders all derivatives whose minimum dimensions
// the original meets. filename is the name the uploader gave the file;
// path usually points at a spool file whose name means nothing, so the
// reference is built from filename, not the path.
//
// Errors: [ErrUnsupportedFormat] if the file is not a decodable image of an
// acceptable kind, [*TooSmallError] if it is below the web minima.
func (s *Store) Store(field, path, filename string) (Ref, error) {
	descriptor, err := s.processor.Descriptor(path)
	if err != nil {
		return Ref{}, err
	}

	if filename == "" {
		filename = filepath.Base(path)
	}
	if !MeetsMinimum(descriptor, SizeWeb) {
		return Ref{}, &TooSmallError{
			Filename: filename,
			Width:    descriptor.Width,
			Height:   descriptor.Height,
			Size:     SizeWeb,
		}
	}

	ref, err := NewRef(field, filename)
	if err != nil {
		return Ref{}, err
	}

	// Original is stored as received, unrecompressed.
	if err := atomicfile.CopyTo(s.Path(ref, SizeOriginal), path); err != nil {
		return Ref{}, fmt.Errorf("image: store original: %w", err)
	}

	if err := s.EnsureDerivatives(ref); err != nil {
		// Roll back the original so a failed store leaves no trace.
		_ = s.Delete(ref)
		return Ref{}, err
	}

	s.log.Info("image_stored",
		slog.String("ref", ref.String()),
		slog.Int("width", descriptor.Width),
		slog.Int("height", descriptor.Height),
	)

	return ref, nil
}

// EnsureDerivatives renders any missing derivative whose minimum the
// original meets. It is idempotent; existing derivatives are kept.
func (s *Store) EnsureDerivatives(ref Ref) error {
	originalPath := s.Path(ref, SizeOriginal)

	descriptor, err := s.processor.Descriptor(originalPath)
	if err != nil {
		return err
	}

	for _, size := range []Size{SizeCBZ, SizeWeb, SizeTbn} {
		if !MeetsMinimum(descriptor, size) {
			continue
		}
		if s.HasSize(ref, size) {
			continue
		}

		target := TargetLongEdge(size, descriptor.Orientation)
		dstPath := s.Path(ref, size)

		err := atomicfile.WriteTo(dstPath, func(tmpPath string) error {
			return s.resizer.Resize(originalPath, tmpPath, target)
		})
		if err != nil {
			return fmt.Errorf("image: render %s derivative: %w", size, err)
		}
	}

	return nil
}

// OriginalDescriptor returns the dimensions and orientation of the stored
// original for ref.
func (s *Store) OriginalDescriptor(ref Ref) (Descriptor, error) {
	return s.processor.Descriptor(s.Path(ref, SizeOriginal))
}

// Retrieve resolves ref to its original filename and absolute path.
func (s *Store) Retrieve(ref Ref) (filename, path string, err error) {
	path = s.Path(ref, SizeOriginal)
	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("image: original missing for %s: %w", ref.String(), err)
	}
	return ref.Filename, path, nil
}

// Resolve returns the path and extension to serve for the requested size,
// falling back to the original when the derivative does not exist.
func (s *Store) Resolve(ref Ref, size Size) (path string, served Size, err error) {
	if size != SizeOriginal && s.HasSize(ref, size) {
		return s.Path(ref, size), size, nil
	}

	originalPath := s.Path(ref, SizeOriginal)
	if _, statErr := os.Stat(originalPath); statErr != nil {
		return "", SizeOriginal, fmt.Errorf("image: no file for %s: %w", ref.String(), statErr)
	}
	return originalPath, SizeOriginal, nil
}

// Delete removes all size-class files for ref. Idempotent: deleting a
// reference with no files is not an error.
func (s *Store) Delete(ref Ref) error {
	var firstErr error
	for _, size := range Sizes {
		err := os.Remove(s.Path(ref, size))
		if err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("image: delete %s/%s: %w", size, ref.String(), err)
		}
	}
	return firstErr
}
