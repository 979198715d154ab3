package job

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pixshift/models"

	"github.com/adrg/xdg"
)

const placeholderStem = "image"

// downloadsDir is replaced in tests.
var downloadsDir = func() string { return xdg.UserDirs.Download }

// ResolutionError means the output directory could not be determined or created.
type ResolutionError struct {
	Msg string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolution is where a job's output goes.
type Resolution struct {
	Dir  string
	Name string
	Path string
}

// Exists reports whether a file is already present at the resolved path.
func (r Resolution) Exists() bool {
	_, err := os.Stat(r.Path)
	return err == nil
}

// OutputName replaces the extension of the job's name with the target
// identifier. A leading dot does not start an extension, so ".hidden" keeps
// its whole name as the stem.
func OutputName(name, target string) string {
	base := path.Base(filepath.ToSlash(name))
	switch base {
	case ".", "..", "/":
		base = ""
	}
	stem := base
	if i := strings.LastIndex(base, "."); i > 0 {
		stem = base[:i]
	}
	if stem == "" {
		stem = placeholderStem
	}
	return stem + "." + target
}

// ResolveOutput computes the output path for a job, creating the subfolder if requested.
func ResolveOutput(j *models.ConversionJob, req models.BatchRequest, target string) (Resolution, error) {
	var base string
	switch {
	case req.OutputDir != models.UseSourceDir:
		base = req.OutputDir
	case !j.Remote():
		base = filepath.Dir(j.SourcePath)
	case req.RemoteFallbackDir != "":
		base = req.RemoteFallbackDir
	default:
		base = downloadsDir()
		if base == "" {
			return Resolution{}, &ResolutionError{Msg: "Cannot determine Downloads folder"}
		}
	}

	dir := base
	if req.CreateSubfolder && req.SubfolderName != "" {
		dir = filepath.Join(base, req.SubfolderName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Resolution{}, &ResolutionError{Msg: "Failed to create subfolder", Err: err}
		}
	}

	name := OutputName(j.Name, target)
	return Resolution{Dir: dir, Name: name, Path: filepath.Join(dir, name)}, nil
}
