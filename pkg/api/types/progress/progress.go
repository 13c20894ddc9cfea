package progress

import "github.com/glycoshape/glyco/pkg/cmp"

type Status string

const (
	InProgress Status = "in_progress"
	Finished   Status = "finished"
	Error      Status = "error"
)

// Terminal reports no further progress is expected after s.
//
// Unknown statuses are not terminal; the job is still considered running.
func (s Status) Terminal() bool {
	return s == Finished || s == Error
}

type Log struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type Image struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// Document is the content of output/{jobId}/progress.json .
//
// Logs and Images grow by appending: each document is expected to be a
// superset of the previous one.
type Document struct {
	JobId    string  `json:"job_id"`
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Logs     []Log   `json:"logs"`
	Images   []Image `json:"images"`
}

func (d Document) Equal(o Document) bool {
	return d.JobId == o.JobId &&
		d.Status == o.Status &&
		d.Progress == o.Progress &&
		cmp.SliceEq(d.Logs, o.Logs) &&
		cmp.SliceEq(d.Images, o.Images)
}
