package task

// Work describes what a task still needs in order to make progress.
type Work int

const (
	// WorkInitial is the state of a task that has not yet been evaluated
	// by the scheduler.
	WorkInitial Work = iota
	// WorkNeedNNTP means the task wants a connection and does not
	// currently hold enough of them.
	WorkNeedNNTP
	// WorkWorking means the task already holds a connection that is
	// making progress; the scheduler leaves it alone.
	WorkWorking
	// WorkCompleted means the task is finished and eligible for removal.
	WorkCompleted
)

func (w Work) String() string {
	switch w {
	case WorkInitial:
		return "initial"
	case WorkNeedNNTP:
		return "need_nntp"
	case WorkWorking:
		return "working"
	case WorkCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ParseWork parses the string form produced by Work.String, defaulting to
// WorkInitial for anything unrecognized.
func ParseWork(s string) Work {
	switch s {
	case "initial":
		return WorkInitial
	case "need_nntp":
		return WorkNeedNNTP
	case "working":
		return WorkWorking
	case "completed":
		return WorkCompleted
	default:
		return WorkInitial
	}
}

// Health describes whether a task is progressing normally.
type Health int

const (
	HealthOK Health = iota
	HealthRetry
	HealthFail
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthRetry:
		return "retry"
	case HealthFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseHealth parses the string form produced by Health.String, defaulting
// to HealthOK for anything unrecognized.
func ParseHealth(s string) Health {
	switch s {
	case "ok":
		return HealthOK
	case "retry":
		return HealthRetry
	case "fail":
		return HealthFail
	default:
		return HealthOK
	}
}

// State is the value a Task reports to the scheduler on demand. Computing
// it must be cheap, idempotent, and side-effect-free — the scheduler may
// call GetState many times per upkeep tick.
type State struct {
	Work    Work
	Health  Health
	Servers []string
}

// HasServer reports whether server is among the state's candidate
// servers.
func (s State) HasServer(server string) bool {
	for _, candidate := range s.Servers {
		if candidate == server {
			return true
		}
	}
	return false
}

// Dispatchable reports whether this state permits the scheduler to hand
// the task a connection to server right now.
func (s State) Dispatchable(server string) bool {
	return s.Work == WorkNeedNNTP && s.Health != HealthFail && s.HasServer(server)
}
