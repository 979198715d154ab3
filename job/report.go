package job

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pixshift/models"
)

// ReportEntry is one job's line in a batch report.
type ReportEntry struct {
	JobID   string         `json:"job_id"`
	Outcome string         `json:"outcome"`
	Result  *models.Result `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Report summarizes one batch run.
type Report struct {
	FinishedAt time.Time           `json:"finished_at"`
	Request    models.BatchRequest `json:"request"`
	Converted  int                 `json:"converted"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Jobs       []ReportEntry       `json:"jobs"`
}

// NewReport builds a report from ordered outcomes.
func NewReport(req models.BatchRequest, outcomes []models.Outcome) Report {
	rep := Report{FinishedAt: time.Now().UTC(), Request: req, Jobs: make([]ReportEntry, 0, len(outcomes))}
	for _, o := range outcomes {
		e := ReportEntry{JobID: o.JobID, Outcome: o.Kind.String()}
		switch o.Kind {
		case models.OutcomeConverted:
			rep.Converted++
			res := o.Result
			e.Result = &res
		case models.OutcomeSkipped:
			rep.Skipped++
		case models.OutcomeFailed:
			rep.Failed++
			if o.Err != nil {
				e.Error = o.Err.Error()
			}
		}
		rep.Jobs = append(rep.Jobs, e)
	}
	return rep
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, rep Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	var rep Report
	if err := json.NewDecoder(file).Decode(&rep); err != nil {
		return Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return rep, nil
}
