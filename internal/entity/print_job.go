package entity

import "time"

type JobType string

const (
	JobKitchen  JobType = "kitchen"
	JobCustomer JobType = "customer"
	JobTest     JobType = "test"
	JobGeneric  JobType = "generic"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type PrintJob struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	OrderID     string     `json:"order_id,omitempty"`
	PrinterID   string     `json:"printer_id,omitempty"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Bytes       int        `json:"bytes"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Content []byte `json:"-"`
}

// Finished reports whether the job reached a terminal status.
func (j PrintJob) Finished() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
