package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/yshk0402/word-merger-app/internal/merge"
)

// JobStatus represents the state of an async merge job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusMerging   JobStatus = "merging"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one merge request from submission to download. Each job
// owns its sources and result outright; nothing is shared between
// concurrent jobs.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	OutputName  string `json:"output_name"`
	SourceCount int    `json:"source_count"`
	KeepStyles  bool   `json:"keep_styles"`
	KeepImages  bool   `json:"keep_images"`

	// Progress is the merge fraction in [0,1].
	Progress float64 `json:"progress"`

	// ResultHash is the SHA-256 of the merged blob once completed.
	ResultHash string `json:"result_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	sources []merge.Source
	result  []byte
	errors  []string
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetProgress records the merge fraction. It serves as the merge
// engine's OnProgress callback; it only takes a short lock, so it
// does not stall the merge.
func (j *Job) SetProgress(fraction float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = fraction
	j.UpdatedAt = time.Now()
}

// AddError records an error message.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetSources hands the ordered source documents to the job.
func (j *Job) SetSources(sources []merge.Source) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sources = sources
	j.SourceCount = len(sources)
}

// Sources returns the ordered source documents.
func (j *Job) Sources() []merge.Source {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sources
}

// SetResult stores the merged blob, records its content hash, and
// releases the sources, which are no longer needed.
func (j *Job) SetResult(blob []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = blob
	j.ResultHash = ContentHashHex(blob)
	j.sources = nil
	j.UpdatedAt = time.Now()
}

// Result returns the merged blob, nil until completed.
func (j *Job) Result() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	OutputName  string    `json:"output_name"`
	SourceCount int       `json:"source_count"`
	KeepStyles  bool      `json:"keep_styles"`
	KeepImages  bool      `json:"keep_images"`
	Progress    float64   `json:"progress"`
	ResultHash  string    `json:"result_hash,omitempty"`
	Errors      []string  `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		OutputName:  j.OutputName,
		SourceCount: j.SourceCount,
		KeepStyles:  j.KeepStyles,
		KeepImages:  j.KeepImages,
		Progress:    j.Progress,
		ResultHash:  j.ResultHash,
		Errors:      errs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes jobs idle longer than the TTL, dropping their
// merged blobs with them.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
