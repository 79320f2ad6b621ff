// Package jobs runs long pipeline invocations in the background and lets
// any number of callers poll their progress by job id.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"autopilot/internal/logging"

	"github.com/google/uuid"
)

// Kind classifies a progress line.
type Kind string

const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

// Progress is one append-only progress line.
type Progress struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
	Kind Kind   `json:"kind"`
}

// Status is a point-in-time copy of a job. Done with a nil Result means the
// job failed; the last progress line then has KindError.
type Status[T any] struct {
	JobID    string     `json:"job_id"`
	Progress []Progress `json:"progress"`
	Done     bool       `json:"done"`
	Result   *T         `json:"result,omitempty"`
}

// Func is a pipeline invocation. It must not retain ctx past its return.
type Func[T any] func(ctx context.Context) (*T, error)

var (
	ErrUnknownJob       = errors.New("unknown job")
	ErrAlreadySubmitted = errors.New("job already submitted")
)

type record[T any] struct {
	progress  []Progress
	done      bool
	submitted bool
	result    *T
}

// Manager owns the job table. A single mutex guards every record; no
// lock is ever held while a job's function runs.
type Manager[T any] struct {
	mu   sync.Mutex
	jobs map[string]*record[T]

	// base is the context handed to every job. Jobs are not cancellable,
	// so it only carries values.
	base  context.Context
	newID func() string
}

func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		jobs:  make(map[string]*record[T]),
		base:  context.Background(),
		newID: shortID,
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// Create allocates an empty, not-done job and returns its id.
func (m *Manager[T]) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		id := m.newID()
		if _, taken := m.jobs[id]; taken {
			continue
		}
		m.jobs[id] = &record[T]{progress: []Progress{}}
		return id
	}
}

// Append adds a progress line. Unknown and finished jobs are left alone.
func (m *Manager[T]) Append(id, text string, done bool, kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok || rec.done {
		return
	}
	rec.progress = append(rec.progress, Progress{Text: text, Done: done, Kind: kind})
}

// Reporter returns Append bound to one job id.
func (m *Manager[T]) Reporter(id string) func(text string, done bool, kind Kind) {
	return func(text string, done bool, kind Kind) { m.Append(id, text, done, kind) }
}

// Get returns a copy of the job's status. Result points at a copy of the
// stored value; slices and maps inside it are shared and must be treated
// as read-only.
func (m *Manager[T]) Get(id string) (Status[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return Status[T]{}, false
	}
	progress := make([]Progress, len(rec.progress))
	copy(progress, rec.progress)
	st := Status[T]{JobID: id, Progress: progress, Done: rec.done}
	if rec.result != nil {
		r := *rec.result
		st.Result = &r
	}
	return st, true
}

// Submit starts fn in its own goroutine and returns at once. On success
// the result is stored and the job marked done; on error or panic an
// error line is appended and the job marked done without a result.
// A job accepts exactly one submission.
func (m *Manager[T]) Submit(id string, fn Func[T]) error {
	m.mu.Lock()
	rec, ok := m.jobs[id]
	switch {
	case !ok:
		m.mu.Unlock()
		return fmt.Errorf("submit %s: %w", id, ErrUnknownJob)
	case rec.submitted:
		m.mu.Unlock()
		return fmt.Errorf("submit %s: %w", id, ErrAlreadySubmitted)
	}
	rec.submitted = true
	m.mu.Unlock()

	go m.run(id, fn)
	return nil
}

func (m *Manager[T]) run(id string, fn Func[T]) {
	logger := logging.New("jobs")
	res, err := invoke(m.base, fn)
	if err != nil {
		logger.Error("job failed", "job_id", id, "error", err)
		m.fail(id, "Error: "+err.Error())
		return
	}
	if res == nil {
		logger.Error("job returned no result", "job_id", id)
		m.fail(id, "Error: pipeline returned no result")
		return
	}
	m.finish(id, res)
	logger.Info("job done", "job_id", id)
}

func invoke[T any](ctx context.Context, fn Func[T]) (res *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (m *Manager[T]) finish(id string, res *T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok || rec.done {
		return
	}
	rec.result = res
	rec.done = true
}

func (m *Manager[T]) fail(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok || rec.done {
		return
	}
	rec.progress = append(rec.progress, Progress{Text: text, Done: false, Kind: KindError})
	rec.done = true
}
