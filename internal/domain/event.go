package domain

const (
	EventNameSessionStarted     = "session.started"
	EventNameSessionCompleted   = "session.completed"
	EventNameSessionExpired     = "session.expired"
	EventNameInterviewCompleted = "interview.completed"
)

type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

type EventSessionCompleted struct {
	Session Session
}

func (EventSessionCompleted) Name() string { return EventNameSessionCompleted }

type EventSessionExpired struct {
	Session Session
}

func (EventSessionExpired) Name() string { return EventNameSessionExpired }

type EventInterviewCompleted struct {
	Interview Interview
}

func (EventInterviewCompleted) Name() string { return EventNameInterviewCompleted }
