package artifact

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Store persists exported bundle files. Bundles are addressed by id; files
// inside a bundle by a relative path such as "index.html".
type Store interface {
	Put(ctx context.Context, bundleID, name string, content []byte) error
	Get(ctx context.Context, bundleID, name string) ([]byte, error)
	GetURL(ctx context.Context, bundleID, name string) (string, error)
	List(ctx context.Context, bundleID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

func objectKey(bundleID, name string) (string, error) {
	bundleID = strings.TrimSpace(bundleID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if bundleID == "" {
		return "", fmt.Errorf("bundle_id is required")
	}
	if name == "" {
		return "", fmt.Errorf("path is required")
	}
	if clean := path.Clean(name); clean != name || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path %q is not clean", name)
	}
	return bundleID + "/" + name, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
