package job

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pixshift/logger"
	"pixshift/metadata"
	"pixshift/models"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxFetchBytes caps the body read by FromURL.
var MaxFetchBytes int64 = 256 << 20

func newJob(name string, data []byte) models.ConversionJob {
	j := models.ConversionJob{
		ID:   uuid.NewString(),
		Name: name,
		Size: uint64(len(data)),
		Data: data,
	}
	if block, ok := metadata.Extract(data); ok {
		j.Exif = block
	}
	return j
}

// FromPath reads a local image and captures its access and modification times.
func FromPath(p string) (models.ConversionJob, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to resolve path %s: %w", p, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	j := newJob(filepath.Base(abs), data)
	j.SourcePath = abs

	if ts, err := times.Stat(abs); err == nil {
		j.Timestamps = &models.Timestamps{
			Accessed: ts.AccessTime(),
			Modified: ts.ModTime(),
		}
	} else {
		logger.Warnf("could not read timestamps of %s: %v", abs, err)
	}

	logger.Debugf("ingested %s (%d bytes, exif=%t)", abs, j.Size, j.Exif != nil)
	return j, nil
}

// IsImageType reports whether a media type names an image.
func IsImageType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// DetectImage sniffs data and returns its media type and extension (with
// the leading dot), or an error when data is not an image.
func DetectImage(data []byte) (mediaType, ext string, err error) {
	m := mimetype.Detect(data)
	if !IsImageType(m.String()) {
		return "", "", fmt.Errorf("unsupported file type: %s", m.String())
	}
	return m.String(), m.Extension(), nil
}

// FromBytes builds a remote-origin job from bytes already in memory, such as an upload.
func FromBytes(name string, data []byte) models.ConversionJob {
	if name == "" {
		name = "image"
	}
	return newJob(path.Base(filepath.ToSlash(name)), data)
}

// FromURL fetches an image over HTTP(S). The response must be 2xx with an image/* content type.
func FromURL(ctx context.Context, client *http.Client, rawURL string) (models.ConversionJob, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return models.ConversionJob{}, fmt.Errorf("invalid image URL: %s", rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "pixshift/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ConversionJob{}, fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	// servers that do not label their content get sniffed
	untyped := mediaType == "" || mediaType == "application/octet-stream"
	if !untyped && !strings.HasPrefix(mediaType, "image/") {
		return models.ConversionJob{}, fmt.Errorf("URL did not return an image (content type %q)", mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	if int64(len(data)) > MaxFetchBytes {
		return models.ConversionJob{}, fmt.Errorf("image at %s exceeds %d bytes", rawURL, MaxFetchBytes)
	}

	var detected *mimetype.MIME
	if untyped {
		detected = mimetype.Detect(data)
		if !IsImageType(detected.String()) {
			return models.ConversionJob{}, fmt.Errorf("URL did not return an image (detected %q)", detected.String())
		}
	} else {
		detected = mimetype.Lookup(mediaType)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	if path.Ext(name) == "" && detected != nil {
		name += detected.Extension()
	}

	j := newJob(name, data)
	logger.Debugf("fetched %s as %s (%d bytes)", rawURL, name, j.Size)
	return j, nil
}
