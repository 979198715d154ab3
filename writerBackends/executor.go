// Package writerbackends publishes converted files to remote or local storage.
package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"pixshift/credentials"
	"pixshift/logger"
	"pixshift/metrics"
	"pixshift/models"

	"golang.org/x/sync/errgroup"
)

// WriteImage uploads one object named name to the backend described by rec.
func WriteImage(ctx context.Context, rec credentials.Record, name string, reader io.Reader) error {
	accessInfo := make(map[string]string, len(rec.Values)+1)
	for k, v := range rec.Values {
		accessInfo[k] = v
	}

	switch rec.Type {
	case "local":
		accessInfo["filename"] = name
		if err := UploadToLocal(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to write to local mirror: %w", err)
		}
	case "s3":
		accessInfo["key"] = name
		if err := UploadToS3WithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to S3: %w", err)
		}
	case "gcs":
		accessInfo["object"] = name
		if err := UploadToGCSWithJSON(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to GCS: %w", err)
		}
	case "sftp":
		accessInfo["remotePath"] = path.Join(accessInfo["remoteDir"], name)
		if err := UploadToSFTPWithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to upload to SFTP: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend type: %s", rec.Type)
	}
	return nil
}

// Publish uploads every saved file to every target, at most concurrency
// uploads at a time. Failures are collected and returned; they never stop
// the remaining uploads.
func Publish(ctx context.Context, targets []models.PublishTarget, results []models.Result, concurrency int) []models.PublishFailure {
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var failures []models.PublishFailure
	fail := func(target models.PublishTarget, file string, err error) {
		logger.Errorf("publish %s to %s failed: %v", file, target.Type, err)
		metrics.Published(target.Type, false)
		mu.Lock()
		failures = append(failures, models.PublishFailure{Target: target.Type, File: file, Error: err.Error()})
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, target := range targets {
		rec, err := credentials.GetCredentials(target.CredentialsKey)
		if err != nil {
			for _, res := range results {
				fail(target, res.SavedPath, err)
			}
			continue
		}
		if rec.Type != target.Type {
			err := fmt.Errorf("credentials %s are for %s, not %s", target.CredentialsKey, rec.Type, target.Type)
			for _, res := range results {
				fail(target, res.SavedPath, err)
			}
			continue
		}

		for _, res := range results {
			g.Go(func() error {
				if err := publishOne(ctx, rec, target, res); err != nil {
					fail(target, res.SavedPath, err)
					return nil
				}
				metrics.Published(target.Type, true)
				return nil
			})
		}
	}
	g.Wait()

	if len(failures) > 0 {
		logger.Warnf("publishing finished with %d failures", len(failures))
	}
	return failures
}

func publishOne(ctx context.Context, rec credentials.Record, target models.PublishTarget, res models.Result) error {
	reader, err := os.Open(res.SavedPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", res.SavedPath, err)
	}
	defer reader.Close()

	return WriteImage(ctx, rec, path.Join(target.Prefix, res.ConvertedName), reader)
}
