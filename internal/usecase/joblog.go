package usecase

import (
	"sync"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
)

const DefaultJobRetention = 200

type JobStats struct {
	Retained  int `json:"retained"`
	Submitted int `json:"submitted"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// JobLog is a bounded, append-only record of print jobs. Once full, the
// oldest job is overwritten. Lifetime counters survive eviction.
type JobLog struct {
	mu    sync.RWMutex
	buf   []entity.PrintJob
	head  int // index of the oldest entry
	size  int
	stats JobStats
}

func NewJobLog(capacity int) *JobLog {
	if capacity < 1 {
		capacity = DefaultJobRetention
	}
	return &JobLog{buf: make([]entity.PrintJob, capacity)}
}

func (l *JobLog) Append(job entity.PrintJob) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == len(l.buf) {
		l.buf[l.head] = job
		l.head = (l.head + 1) % len(l.buf)
	} else {
		l.buf[(l.head+l.size)%len(l.buf)] = job
		l.size++
	}
	l.stats.Submitted++
	l.count(job.Status, 1)
}

// Update replaces the retained job with the same id. It reports false when
// the job has already been evicted.
func (l *JobLog) Update(job entity.PrintJob) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := l.size - 1; i >= 0; i-- {
		idx := (l.head + i) % len(l.buf)
		if l.buf[idx].ID == job.ID {
			l.count(l.buf[idx].Status, -1)
			l.count(job.Status, 1)
			l.buf[idx] = job
			return true
		}
	}
	// evicted while in flight; jobs only move from queued to a terminal status
	if job.Finished() {
		l.count(entity.JobQueued, -1)
		l.count(job.Status, 1)
	}
	return false
}

func (l *JobLog) Get(id string) (entity.PrintJob, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := l.size - 1; i >= 0; i-- {
		j := l.buf[(l.head+i)%len(l.buf)]
		if j.ID == id {
			return j, true
		}
	}
	return entity.PrintJob{}, false
}

// Recent returns retained jobs, oldest first.
func (l *JobLog) Recent() []entity.PrintJob {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]entity.PrintJob, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

func (l *JobLog) Stats() JobStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := l.stats
	st.Retained = l.size
	return st
}

func (l *JobLog) count(s entity.JobStatus, d int) {
	switch s {
	case entity.JobQueued:
		l.stats.Queued += d
	case entity.JobCompleted:
		l.stats.Completed += d
	case entity.JobFailed:
		l.stats.Failed += d
	}
}
