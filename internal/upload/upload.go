// Package upload stores user-submitted images on local disk under
// unpredictable names and hands back their public URLs.
package upload

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"snapfeed/internal/config"
	"snapfeed/internal/models"
	"snapfeed/internal/observability"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Naming selects how stored files are named.
type Naming string

const (
	NamingRandomHex Naming = "random"
	NamingUUID      Naming = "uuid"
)

const (
	DefaultMaxFileSize = 5 * 1024 * 1024
	DefaultMaxFiles    = 6
	randomNameBytes    = 12
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrTooManyFiles    = errors.New("too many files")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// DefaultAllowedTypes maps accepted sniffed content types to their extension.
var DefaultAllowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Config describes where and how uploads are stored.
type Config struct {
	Destination  string
	URLPrefix    string
	Naming       Naming
	MaxFileSize  int64
	MaxFiles     int
	AllowedTypes map[string]string
}

// FromConfig derives the upload configuration from application settings.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Destination: cfg.UploadDir,
		URLPrefix:   cfg.UploadURLPrefix,
		Naming:      Naming(cfg.UploadNaming),
		MaxFileSize: int64(cfg.UploadMaxFileSizeMB) * 1024 * 1024,
		MaxFiles:    cfg.UploadMaxFiles,
	}
}

// Store writes uploads to Config.Destination.
type Store struct {
	cfg Config
}

// NewStore fills unset limits with defaults and ensures the destination exists.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Destination == "" {
		return nil, errors.New("upload destination is required")
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/images/uploads"
	}
	if cfg.Naming == "" {
		cfg.Naming = NamingRandomHex
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}
	if err := os.MkdirAll(cfg.Destination, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// MaxFiles returns the per-request file limit.
func (s *Store) MaxFiles() int {
	return s.cfg.MaxFiles
}

// Save validates and stores one file, returning its public URL.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", invalid(ErrNoFile)
	}
	if fh.Size > s.cfg.MaxFileSize {
		return "", invalid(ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxFileSize+1))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if len(content) == 0 {
		return "", invalid(ErrNoFile)
	}
	if int64(len(content)) > s.cfg.MaxFileSize {
		return "", invalid(ErrFileTooLarge)
	}

	ext, err := s.extensionFor(fh.Filename, content)
	if err != nil {
		return "", err
	}

	name, err := s.newName()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	name += ext

	if err := os.WriteFile(filepath.Join(s.cfg.Destination, name), content, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	observability.UploadedBytes.Observe(float64(len(content)))
	return path.Join(s.cfg.URLPrefix, name), nil
}

// SaveAll stores every file or none of them.
func (s *Store) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	if len(files) > s.cfg.MaxFiles {
		return nil, invalid(ErrTooManyFiles)
	}
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := s.Save(fh)
		if err != nil {
			s.Remove(urls...)
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Remove deletes stored files by their public URL. Unknown URLs are ignored.
func (s *Store) Remove(urls ...string) {
	for _, u := range urls {
		name := path.Base(u)
		if !strings.HasPrefix(u, s.cfg.URLPrefix) || name == "." || name == "/" {
			continue
		}
		_ = os.Remove(filepath.Join(s.cfg.Destination, name))
	}
}

// extensionFor sniffs content and decodes the image header; the client's
// filename and Content-Type are not trusted.
func (s *Store) extensionFor(filename string, content []byte) (string, error) {
	detected := http.DetectContentType(content)
	ext, ok := s.cfg.AllowedTypes[detected]
	if !ok {
		return "", invalid(ErrUnsupportedType)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return "", invalid(ErrUnsupportedType)
	}
	// Keep the client's spelling when it agrees with the content (.jpeg vs .jpg).
	orig := strings.ToLower(filepath.Ext(filename))
	if orig == ".jpeg" && ext == ".jpg" {
		return orig, nil
	}
	return ext, nil
}

func (s *Store) newName() (string, error) {
	if s.cfg.Naming == NamingUUID {
		return uuid.NewString(), nil
	}
	b := make([]byte, randomNameBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func invalid(err error) error {
	return &models.AppError{Code: models.CodeValidation, Message: err.Error(), Err: err}
}
