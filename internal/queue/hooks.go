package queue

import "github.com/ternarybob/satchel/internal/models"

// Hooks are metrics callbacks invoked synchronously at defined points in the
// worker loop. There is no listener registration; a single Hooks value is
// supplied at construction and every field is optional.
type Hooks struct {
	JobEnqueued  func(job *models.Job)
	JobClaimed   func(job *models.Job)
	JobCompleted func(job *models.Job)
	JobFailed    func(job *models.Job)
	JobRetried   func(job *models.Job)
	QueueDrained func(queue string)
}

func (h Hooks) enqueued(job *models.Job) {
	if h.JobEnqueued != nil {
		h.JobEnqueued(job)
	}
}

func (h Hooks) claimed(job *models.Job) {
	if h.JobClaimed != nil {
		h.JobClaimed(job)
	}
}

func (h Hooks) completed(job *models.Job) {
	if h.JobCompleted != nil {
		h.JobCompleted(job)
	}
}

func (h Hooks) failed(job *models.Job) {
	if h.JobFailed != nil {
		h.JobFailed(job)
	}
}

func (h Hooks) retried(job *models.Job) {
	if h.JobRetried != nil {
		h.JobRetried(job)
	}
}

func (h Hooks) drained(queue string) {
	if h.QueueDrained != nil {
		h.QueueDrained(queue)
	}
}
