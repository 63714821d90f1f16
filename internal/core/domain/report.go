package domain

import "time"

// Stage names the pipeline step where a failure occurred.
type Stage string

// Pipeline stages that can fail without aborting the run.
const (
	StageFetch  Stage = "fetch"
	StageEmbed  Stage = "embed"
	StageInsert Stage = "insert"
)

// Failure is a recoverable error attributed to a source or one of its chunks.
type Failure struct {
	// SourceURL is the page being processed.
	SourceURL string

	// ChunkIndex is the failing chunk, or -1 when the whole source failed.
	ChunkIndex int

	// Stage is the step that failed.
	Stage Stage

	// Err is the underlying error.
	Err error
}

// RunReport summarises one ingestion run.
type RunReport struct {
	Collection CollectionSchema

	SourcesTotal     int
	SourcesProcessed int
	SourcesFailed    int

	ChunksTotal    int
	ChunksInserted int
	ChunksFailed   int

	Failures []Failure

	StartedAt time.Time
	Duration  time.Duration
}

// AddSourceFailure records a source that was abandoned.
func (r *RunReport) AddSourceFailure(url string, stage Stage, err error) {
	r.SourcesFailed++
	r.Failures = append(r.Failures, Failure{SourceURL: url, ChunkIndex: -1, Stage: stage, Err: err})
}

// AddChunkFailure records a chunk that was skipped.
func (r *RunReport) AddChunkFailure(url string, index int, stage Stage, err error) {
	r.ChunksFailed++
	r.Failures = append(r.Failures, Failure{SourceURL: url, ChunkIndex: index, Stage: stage, Err: err})
}

// Failed returns true if any source or chunk failed.
func (r *RunReport) Failed() bool {
	return len(r.Failures) > 0
}
