package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pixshift/logger"
)

// UploadToLocal copies content into a mirror directory on this machine.
// accessInfo needs baseDir and filename; filename may contain a prefix path.
func UploadToLocal(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	baseDir := accessInfo["baseDir"]
	filename := accessInfo["filename"]
	if baseDir == "" || filename == "" {
		return fmt.Errorf("missing required accessInfo keys: baseDir, filename")
	}

	fullPath := filepath.Join(baseDir, filepath.FromSlash(filename))
	rel, err := filepath.Rel(baseDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to write outside %s: %s", baseDir, filename)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved file '%s' to '%s'", filename, fullPath)
	return nil
}
