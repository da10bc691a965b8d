package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cloo-solutions/shiftlog/internal/domain"
)

// Store keeps original uploads so answers can link back to them.
type Store interface {
	// Save copies the file at localPath and returns the stored name.
	Save(ctx context.Context, localPath, filename string) (string, error)
	// Open returns the content of a stored file.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Backend() string
}

// URLSigner is implemented by stores that can hand out direct download links.
type URLSigner interface {
	DownloadURL(ctx context.Context, name string) (string, error)
}

// NewStoredName returns a random name that keeps the lowercased extension of
// filename.
func NewStoredName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// ValidateName rejects names that are empty or try to leave the store root.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		path.Clean(name) != name {
		return domain.Wrap(domain.ErrInvalidFilename, fmt.Errorf("%q", name))
	}
	return nil
}
