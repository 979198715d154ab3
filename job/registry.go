package job

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"pixshift/logger"
	"pixshift/models"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrDuplicate   = errors.New("file is already pending conversion")
)

type entry struct {
	job       models.ConversionJob
	converted bool
	savedPath string
	addedAt   time.Time
}

// Registry holds the pending images. It is locked only for short copy-in or
// copy-out sections and never while codec work or file I/O runs.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a job. A local file may not be added again while an
// unconverted entry for the same path exists; remote jobs are never deduplicated.
func (r *Registry) Add(j models.ConversionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !j.Remote() {
		for _, e := range r.entries {
			if !e.converted && e.job.SourcePath == j.SourcePath {
				return fmt.Errorf("%w: %s", ErrDuplicate, j.SourcePath)
			}
		}
	}
	r.entries = append(r.entries, &entry{job: j, addedAt: time.Now()})
	logger.Debugf("registered job %s (%s, %d bytes)", j.ID, j.Name, j.Size)
	return nil
}

// Remove drops a job by ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.job.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// Clear drops every job.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// RemoveConverted drops the jobs already marked converted and returns how many were removed.
func (r *Registry) RemoveConverted() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.converted {
			kept = append(kept, e)
		}
	}
	removed := len(r.entries) - len(kept)
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept
	return removed
}

func (e *entry) info() models.JobInfo {
	return models.JobInfo{
		ID:         e.job.ID,
		Name:       e.job.Name,
		Size:       e.job.Size,
		SourcePath: e.job.SourcePath,
		HasExif:    e.job.Exif != nil,
		Converted:  e.converted,
		SavedPath:  e.savedPath,
		AddedAt:    e.addedAt,
	}
}

// List returns every job in insertion order.
func (r *Registry) List() []models.JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.JobInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info())
	}
	return out
}

// Get returns the listing view of one job.
func (r *Registry) Get(id string) (models.JobInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.job.ID == id {
			return e.info(), nil
		}
	}
	return models.JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot clones every unconverted job, in insertion order.
func (r *Registry) Snapshot() []models.ConversionJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	var jobs []models.ConversionJob
	for _, e := range r.entries {
		if !e.converted {
			jobs = append(jobs, e.job.Clone())
		}
	}
	return jobs
}

// MarkConverted commits the given results. Jobs without a result stay eligible.
func (r *Registry) MarkConverted(results []models.Result) int {
	if len(results) == 0 {
		return 0
	}
	byID := make(map[string]string, len(results))
	for _, res := range results {
		byID[res.JobID] = res.SavedPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	marked := 0
	for _, e := range r.entries {
		if saved, ok := byID[e.job.ID]; ok {
			e.converted = true
			e.savedPath = saved
			marked++
		}
	}
	return marked
}

// SaveOriginal writes a job's original bytes to path.
func (r *Registry) SaveOriginal(id, path string) error {
	r.mu.Lock()
	var data []byte
	found := false
	for _, e := range r.entries {
		if e.job.ID == id {
			data, found = e.job.Data, true
			break
		}
	}
	r.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	// Data is never mutated after registration, so it is safe to write unlocked.
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save original: %w", err)
	}
	logger.Infof("saved original of job %s to %s", id, path)
	return nil
}
