// Package upload stores uploaded images on local disk under generated names
// and removes superseded files on a best-effort basis.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "blogserver/internal/errors"
	"blogserver/internal/logging"
)

// Kind selects the size limit applied to an upload.
type Kind int

const (
	KindThumbnail Kind = iota
	KindAvatar
)

func (k Kind) String() string {
	switch k {
	case KindThumbnail:
		return "thumbnail"
	case KindAvatar:
		return "avatar"
	default:
		return "unknown"
	}
}

// sniffLen matches the largest header mimetype inspects by default.
const sniffLen = 3072

// Config holds the upload directory and per-kind size limits in bytes.
type Config struct {
	Dir               string
	MaxThumbnailBytes int64
	MaxAvatarBytes    int64
}

// Store writes uploads into a single local directory.
type Store struct {
	dir    string
	limits map[Kind]int64
	logger logging.Logger
}

// NewStore creates the upload directory if needed.
func NewStore(cfg Config, logger logging.Logger) (*Store, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir %s: %w", cfg.Dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		limits: map[Kind]int64{
			KindThumbnail: cfg.MaxThumbnailBytes,
			KindAvatar:    cfg.MaxAvatarBytes,
		},
		logger: logger.With("component", "upload"),
	}, nil
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Limit returns the maximum accepted size for kind.
func (s *Store) Limit(kind Kind) int64 {
	return s.limits[kind]
}

// Save validates and persists a multipart upload, returning the generated filename.
func (s *Store) Save(ctx context.Context, fh *multipart.FileHeader, kind Kind) (string, error) {
	if fh == nil {
		return "", apperrors.ErrFileMissing
	}
	if fh.Size > s.Limit(kind) {
		return "", fmt.Errorf("%s of %d bytes: %w", kind, fh.Size, apperrors.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	return s.SaveReader(ctx, fh.Filename, src, kind)
}

// SaveReader persists r under a name derived from originalName. The content
// must sniff as an image and stay within the kind's limit.
func (s *Store) SaveReader(ctx context.Context, originalName string, r io.Reader, kind Kind) (string, error) {
	limit := s.Limit(kind)

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", apperrors.ErrFileMissing
	}
	if int64(n) > limit {
		return "", fmt.Errorf("%s: %w", kind, apperrors.ErrFileTooLarge)
	}

	mtype := mimetype.Detect(head)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%s detected as %s: %w", kind, mtype.String(), apperrors.ErrUnsupportedFileType)
	}

	name := GenerateFilename(originalName)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(r, limit-int64(n)+1))
	written, copyErr := io.Copy(dst, body)
	closeErr := dst.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write %s: %w", name, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close %s: %w", name, closeErr)
	case written > limit:
		err = fmt.Errorf("%s: %w", kind, apperrors.ErrFileTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	s.logger.Debug(ctx, "upload stored", "kind", kind.String(), "file", name, "bytes", written)
	return name, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// resolve maps a stored filename to its path, refusing anything outside the directory.
func (s *Store) resolve(name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid stored filename %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// GenerateFilename derives "<base><uuid>.<ext>" from the client's filename.
// Only the final path element is used; the base is cut at the first dot.
func GenerateFilename(original string) string {
	original = strings.ReplaceAll(original, "\\", "/")
	base := filepath.Base(original)
	if base == "." || base == "/" {
		base = ""
	}

	stem, ext := base, ""
	if i := strings.Index(base, "."); i >= 0 {
		stem = base[:i]
		ext = base[strings.LastIndex(base, ".")+1:]
	}
	stem = sanitize(stem)
	ext = sanitize(ext)

	name := stem + uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return name
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, s)
}
