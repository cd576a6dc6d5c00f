package jobs

type JobType string

const (
	JobSendEmail JobType = "send_email"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobSendEmail:
		return true
	default:
		return false
	}
}

// Priority orders claims; higher runs first. Reset links expire, so mail goes ahead.
func (t JobType) Priority() int {
	switch t {
	case JobSendEmail:
		return 10
	default:
		return 0
	}
}
