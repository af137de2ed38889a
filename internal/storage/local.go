package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	vault_errors "chatvault/pkg/errors"
)

// Local stores file bytes on disk under a single root directory. Uploads
// are first staged into stagingDir and promoted into the root with a
// rename, so a file is never observable half-written. Both directories
// must be on the same volume.
type Local struct {
	root    string
	staging string
}

func NewLocal(root, staging string) (*Local, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absStaging, err := filepath.Abs(staging)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if err := os.MkdirAll(absStaging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Local{root: absRoot, staging: absStaging}, nil
}

func (l *Local) Root() string {
	return l.root
}

// GenerateStorageID builds a storage identifier from a millisecond
// timestamp and 8 bytes of crypto/rand entropy. The only piece of the
// untrusted original name that survives is a lower-cased, strictly
// alphanumeric extension.
func GenerateStorageID(originalName string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), safeExt(originalName))
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// IsPathSafe reports whether candidate resolves to a location inside
// root. The separator boundary keeps "/data-evil" from matching root
// "/data".
func IsPathSafe(candidate, root string) bool {
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	if absCandidate == absRoot {
		return true
	}
	return strings.HasPrefix(absCandidate, absRoot+string(filepath.Separator))
}

// Path resolves the on-disk location for a storage identifier, rejecting
// any identifier that would land outside the root. Identifiers are
// generator-produced, so a violation here is a defect or an attack.
func (l *Local) Path(id string) (string, error) {
	p := filepath.Join(l.root, id)
	if !IsPathSafe(p, l.root) {
		return "", vault_errors.ErrPathViolation
	}
	return p, nil
}

// Stage copies src into a temporary file in the staging directory and
// returns its path and the number of bytes written.
func (l *Local) Stage(src io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(l.staging, "upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}
	n, err := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write staged file: %w", err)
	}
	return tmp.Name(), n, nil
}

// Promote moves a staged file to its final location under the root via
// rename. Rename is atomic within a volume, so readers never see a
// partial file.
func (l *Local) Promote(stagedPath, id string) error {
	dest, err := l.Path(id)
	if err != nil {
		return err
	}
	if !IsPathSafe(stagedPath, l.staging) {
		return vault_errors.ErrPathViolation
	}
	return os.Rename(stagedPath, dest)
}

// Discard removes a staged file, ignoring files already gone.
func (l *Local) Discard(stagedPath string) error {
	if !IsPathSafe(stagedPath, l.staging) {
		return vault_errors.ErrPathViolation
	}
	if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Open returns a reader over the stored bytes for id.
func (l *Local) Open(id string) (io.ReadCloser, error) {
	p, err := l.Path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vault_errors.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes the stored bytes for id. A missing file is not an
// error; metadata deletion is authoritative.
func (l *Local) Remove(id string) error {
	p, err := l.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
