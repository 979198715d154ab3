package models

import "time"

// UseSourceDir is the OutputDir sentinel that places each output next to its source file.
const UseSourceDir = "USE_SOURCE_DIR"

// Timestamps captured from a local source file.
type Timestamps struct {
	Accessed time.Time `json:"accessed"`
	Modified time.Time `json:"modified"`
}

// ConversionJob is one input image awaiting conversion. Data and Exif are
// owned by the job and never mutated once the job is registered.
type ConversionJob struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Size       uint64      `json:"size"`
	Data       []byte      `json:"-"`
	Exif       []byte      `json:"-"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	SourcePath string      `json:"source_path,omitempty"` // empty for remote-origin jobs
}

// Remote reports whether the job was not ingested from a local path.
func (j *ConversionJob) Remote() bool {
	return j.SourcePath == ""
}

// Clone returns a deep copy safe to hand to a worker.
func (j *ConversionJob) Clone() ConversionJob {
	c := *j
	c.Data = append([]byte(nil), j.Data...)
	if j.Exif != nil {
		c.Exif = append([]byte(nil), j.Exif...)
	}
	if j.Timestamps != nil {
		ts := *j.Timestamps
		c.Timestamps = &ts
	}
	return c
}

// BatchRequest holds the caller-supplied settings for one batch.
type BatchRequest struct {
	TargetFormat       string `json:"target_format"`
	Quality            uint8  `json:"quality"`
	Speed              uint8  `json:"speed"` // avif only
	PreserveExif       bool   `json:"preserve_exif"`
	PreserveTimestamps bool   `json:"preserve_timestamps"`
	OutputDir          string `json:"output_dir"` // directory or UseSourceDir
	Concurrency        uint   `json:"concurrency"`
	CreateSubfolder    bool   `json:"create_subfolder"`
	SubfolderName      string `json:"subfolder_name"`
	RemoteFallbackDir  string `json:"remote_fallback_dir"`
}

// Result describes one converted file.
type Result struct {
	JobID         string `json:"-"`
	OriginalName  string `json:"original_name"`
	ConvertedName string `json:"converted_name"`
	OriginalSize  uint64 `json:"original_size"`
	ConvertedSize uint64 `json:"converted_size"`
	SavedPath     string `json:"saved_path"`
}

// OutcomeKind is the terminal state of a job.
type OutcomeKind int

const (
	OutcomeConverted OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConverted:
		return "converted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one job. Result is set only for
// OutcomeConverted, Err only for OutcomeFailed.
type Outcome struct {
	Kind   OutcomeKind
	JobID  string
	Result Result
	Err    error
}

// JobInfo is the registry's listing view of a job, without its bytes.
type JobInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       uint64    `json:"size"`
	SourcePath string    `json:"source_path,omitempty"`
	HasExif    bool      `json:"has_exif"`
	Converted  bool      `json:"converted"`
	SavedPath  string    `json:"saved_path,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}
