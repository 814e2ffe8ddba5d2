// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OutcomeState is the lifecycle state of one paper in a run.
type OutcomeState string

const (
	// StateSearched marks a paper whose search finished with an acceptable
	// candidate. It is terminal only in search-only runs.
	StateSearched        OutcomeState = "SEARCHED"
	StateDownloaded      OutcomeState = "DOWNLOADED"
	StateSearchFailed    OutcomeState = "SEARCH_FAILED"
	StateDownloadFailed  OutcomeState = "DOWNLOAD_FAILED"
	StateSkippedExisting OutcomeState = "SKIPPED_EXISTING"
	StateMalformedQuery  OutcomeState = "MALFORMED_QUERY"
	StateCancelled       OutcomeState = "CANCELLED"
)

// Failed reports whether the state counts as a failure for the run's exit
// status.
func (s OutcomeState) Failed() bool {
	switch s {
	case StateSearchFailed, StateDownloadFailed, StateMalformedQuery, StateCancelled:
		return true
	}
	return false
}

// ErrorKind classifies the cause of a source or download failure.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindNetwork     ErrorKind = "network"
	KindParse       ErrorKind = "parse"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindValidation  ErrorKind = "validation_failed"
	KindFilesystem  ErrorKind = "filesystem"
)

// TaskState tracks a download task inside the download manager.
type TaskState string

const (
	TaskQueued  TaskState = "queued"
	TaskRunning TaskState = "running"
	TaskDone    TaskState = "done"
)

// DownloadTask is one scheduled transfer of a candidate to the output
// directory. It is owned by the download manager.
type DownloadTask struct {
	PaperID      string     `json:"paper_id" yaml:"paper_id"`
	Query        PaperQuery `json:"query" yaml:"query"`
	Candidate    Candidate  `json:"candidate" yaml:"candidate"`
	TargetPath   string     `json:"target_path" yaml:"target_path"`
	AttemptCount int        `json:"attempt_count" yaml:"attempt_count"`
	State        TaskState  `json:"state" yaml:"state"`
}

// Outcome is the terminal record for one paper. The ledger accepts exactly
// one Outcome per paper ID per run.
type Outcome struct {
	PaperID      string        `json:"paper_id" yaml:"paper_id"`
	Title        string        `json:"title" yaml:"title"`
	State        OutcomeState  `json:"state" yaml:"state"`
	ChosenSource string        `json:"chosen_source,omitempty" yaml:"chosen_source,omitempty"`
	Locator      string        `json:"locator,omitempty" yaml:"locator,omitempty"`
	Score        float64       `json:"score,omitempty" yaml:"score,omitempty"`
	FilePath     string        `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	FileSize     int64         `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts     int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Diagnostics  []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}
