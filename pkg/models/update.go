package models

// UpdateKind tags an Update delivered on a streaming channel.
type UpdateKind int

const (
	// UpdateStart is sent once the call has been admitted.
	UpdateStart UpdateKind = iota
	// UpdateMessage carries a batch of answer text in Text.
	UpdateMessage
	// UpdateProgress carries an estimate from 0 to 100 in Progress.
	UpdateProgress
	// UpdateComplete carries the final result in Result.
	UpdateComplete
	// UpdateError carries the failure in Err.
	UpdateError
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStart:
		return "start"
	case UpdateMessage:
		return "message"
	case UpdateProgress:
		return "progress"
	case UpdateComplete:
		return "complete"
	case UpdateError:
		return "error"
	default:
		return "unknown"
	}
}

// Update is one item of a channel-based streaming call. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Update struct {
	Kind     UpdateKind
	Text     string
	Progress int
	Result   *ChatResult
	Err      error
}
