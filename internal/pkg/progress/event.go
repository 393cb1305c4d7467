package progress

// Status identifies the kind of progress event on a job channel
type Status string

const (
	StatusConnected  Status = "connected"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Event is one progress update published on a job's channel. Events are only
// built through the constructors below so each status carries exactly the
// fields valid for it.
type Event struct {
	Status    Status `json:"status"`
	JobID     string `json:"job_id,omitempty"`
	Processed *int   `json:"processed,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Inserted  *int   `json:"inserted,omitempty"`
	Updated   *int   `json:"updated,omitempty"`
	Percent   *int   `json:"percent,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsTerminal reports whether no further events follow this one.
func (e Event) IsTerminal() bool {
	switch e.Status {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	}
	return false
}

// Connected is the initial marker sent to a subscriber when its stream opens.
func Connected(jobID string) Event {
	return Event{Status: StatusConnected, JobID: jobID}
}

// Queued announces that a job has been accepted but not yet picked up.
func Queued(jobID, message string) Event {
	return Event{Status: StatusQueued, JobID: jobID, Message: message}
}

// Processing carries cumulative counters for a running import.
func Processing(processed, inserted, updated, percent int, message string) Event {
	return Event{
		Status:    StatusProcessing,
		Processed: &processed,
		Inserted:  &inserted,
		Updated:   &updated,
		Percent:   &percent,
		Message:   message,
	}
}

// Complete is the terminal event of a successful import.
func Complete(processed, inserted, updated int, message string) Event {
	total := processed
	percent := 100
	return Event{
		Status:    StatusComplete,
		Processed: &processed,
		Total:     &total,
		Inserted:  &inserted,
		Updated:   &updated,
		Percent:   &percent,
		Message:   message,
	}
}

// Working announces a running maintenance task that has no row counters.
func Working(message string) Event {
	return Event{Status: StatusProcessing, Message: message}
}

// Done is the terminal event of a successful maintenance task without
// row counters.
func Done(message string) Event {
	return Event{Status: StatusComplete, Message: message}
}

// Errored is the terminal event of a failed import.
func Errored(errMsg, message string) Event {
	return Event{Status: StatusError, Error: errMsg, Message: message}
}

// Cancelled is the terminal event of a cancelled import. Processed reflects
// the rows committed before the cancellation flag was observed.
func Cancelled(processed int, message string) Event {
	return Event{Status: StatusCancelled, Processed: &processed, Message: message}
}
