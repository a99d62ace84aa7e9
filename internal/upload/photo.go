// Package upload stores profile photos on local disk.  Files are
// decoded, scaled down to fit MaxSide×MaxSide and re-encoded so only
// well-formed images under a generated name ever reach the upload
// directory.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for extensions other than jpg, jpeg,
	// png and gif.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrNotImage is returned when the content does not decode.
	ErrNotImage = errors.New("file is not a valid image")
	// ErrTooLarge is returned when the upload exceeds MaxBytes.
	ErrTooLarge = errors.New("image too large")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// PhotoStore writes normalised photos into Dir.
type PhotoStore struct {
	Dir      string
	MaxSide  int
	MaxBytes int64
}

// NewPhotoStore returns a store for dir with the default limits.
func NewPhotoStore(dir string) *PhotoStore {
	return &PhotoStore{Dir: dir, MaxSide: 800, MaxBytes: 5 << 20}
}

// CheckExtension validates the original file name.
func CheckExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return ext, nil
}

// Save decodes src, normalises it and writes it under a random name
// keeping the original extension.  It returns the stored path.
func (s *PhotoStore) Save(src io.Reader, filename string) (string, error) {
	ext, err := CheckExtension(filename)
	if err != nil {
		return "", err
	}
	if s.MaxBytes > 0 {
		src = io.LimitReader(src, s.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return "", ErrTooLarge
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if s.MaxSide > 0 {
		img = imaging.Fit(img, s.MaxSide, s.MaxSide, imaging.Lanczos)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir upload dir: %w", err)
	}
	path := filepath.Join(s.Dir, uuid.NewString()+ext)
	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return filepath.ToSlash(path), nil
}

// Remove deletes a previously stored photo.  Missing files are ignored.
func (s *PhotoStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(filepath.FromSlash(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
