package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

var _ Stager = (*Disk)(nil)

type Disk struct {
	dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	return &Disk{dir: dir}, nil
}

func (d *Disk) Stage(_ context.Context, sessionID, filename string, data []byte) (string, error) {
	key, err := objectKey(sessionID, filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, filepath.FromSlash(key))
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}

	return path, nil
}
