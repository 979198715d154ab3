package job

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pixshift/decoder"
	"pixshift/encoder"
	"pixshift/logger"
	"pixshift/models"
)

// WriteError means the converted bytes could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("Failed to write file: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ProcessFunc converts one job to a terminal outcome. It emits its own progress events.
type ProcessFunc func(ctx context.Context, j models.ConversionJob, req models.BatchRequest, emit models.ProgressFunc) models.Outcome

func event(j *models.ConversionJob, status models.ProgressStatus) models.ProgressEvent {
	return models.ProgressEvent{JobID: j.ID, JobName: j.Name, Status: status}
}

func failed(j *models.ConversionJob, emit models.ProgressFunc, err error) models.Outcome {
	ev := event(j, models.StatusError)
	ev.ErrorMessage = err.Error()
	emit(ev)
	logger.Errorf("job %s (%s) failed: %v", j.ID, j.Name, err)
	return models.Outcome{Kind: models.OutcomeFailed, JobID: j.ID, Err: err}
}

func skipped(j *models.ConversionJob, emit models.ProgressFunc, path string) models.Outcome {
	ev := event(j, models.StatusSkipped)
	ev.ErrorMessage = "File already exists"
	ev.SavedPath = path
	emit(ev)
	logger.Debugf("job %s (%s) skipped: %s already exists", j.ID, j.Name, path)
	return models.Outcome{Kind: models.OutcomeSkipped, JobID: j.ID}
}

// ConvertJob runs resolve, decode, encode, write and timestamp restore for one
// job. A job whose destination already exists is skipped before any codec work.
func ConvertJob(ctx context.Context, j models.ConversionJob, req models.BatchRequest, emit models.ProgressFunc) models.Outcome {
	if emit == nil {
		emit = func(models.ProgressEvent) {}
	}
	target := encoder.ParseTarget(req.TargetFormat)

	if err := encoder.Check(target); err != nil {
		emit(event(&j, models.StatusConverting))
		return failed(&j, emit, err)
	}

	res, err := ResolveOutput(&j, req, target.ID)
	if err != nil {
		return failed(&j, emit, err)
	}
	if res.Exists() {
		return skipped(&j, emit, res.Path)
	}

	emit(event(&j, models.StatusConverting))
	logger.Debugf("job %s (%s) converting to %s", j.ID, j.Name, res.Path)

	img, err := decoder.Decode(j.Data)
	if err != nil {
		return failed(&j, emit, err)
	}

	opts := encoder.EncodeOptions{Quality: int(req.Quality), Speed: int(req.Speed)}
	if req.PreserveExif && target.SupportsMetadata() && j.Exif != nil {
		opts.Exif = j.Exif
	}
	data, err := encoder.Encode(ctx, target, img, opts)
	if err != nil {
		return failed(&j, emit, err)
	}

	if err := writeExclusive(res.Path, data); err != nil {
		if errors.Is(err, os.ErrExist) {
			return skipped(&j, emit, res.Path)
		}
		return failed(&j, emit, err)
	}

	if req.PreserveTimestamps && j.Timestamps != nil {
		if err := os.Chtimes(res.Path, j.Timestamps.Accessed, j.Timestamps.Modified); err != nil {
			logger.Debugf("job %s: could not restore timestamps: %v", j.ID, err)
		}
	}

	ev := event(&j, models.StatusCompleted)
	ev.SavedPath = res.Path
	emit(ev)
	logger.Debugf("job %s (%s) completed: %d -> %d bytes", j.ID, j.Name, j.Size, len(data))

	return models.Outcome{
		Kind:  models.OutcomeConverted,
		JobID: j.ID,
		Result: models.Result{
			JobID:         j.ID,
			OriginalName:  j.Name,
			ConvertedName: res.Name,
			OriginalSize:  j.Size,
			ConvertedSize: uint64(len(data)),
			SavedPath:     res.Path,
		},
	}
}

// writeExclusive never overwrites: an existing file yields an os.ErrExist error.
func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return &WriteError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
