// Package blob stores user-uploaded binary objects such as avatars.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrEmptyUpload = errors.New("empty upload")
	ErrInvalidPath = errors.New("invalid blob path")
)

// Store uploads an object and returns a URL that serves it.
type Store interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// AvatarPath is where a user's profile photo lives.
func AvatarPath(uid string) string {
	return fmt.Sprintf("users/%s/avatar.jpg", uid)
}

// cleanPath rejects absolute paths and parent references.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}
