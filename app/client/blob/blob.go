package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"examprep/app/config"

	"github.com/samber/do"
)

// Stager keeps a copy of every uploaded file.
type Stager interface {
	Stage(ctx context.Context, sessionID, filename string, data []byte) (string, error)
}

// New picks the staging backend from config.
func New(di *do.Injector) (Stager, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Storage.Backend {
	case "s3":
		return NewS3(cfg.Storage.S3)
	default:
		return NewDisk(cfg.Storage.Dir)
	}
}

// objectKey builds a storage key that cannot escape the session prefix.
func objectKey(sessionID, filename string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = "shared"
	}

	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	return filepath.ToSlash(filepath.Join(filepath.Base(sessionID), name)), nil
}
