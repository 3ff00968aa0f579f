package reporter

import "strconv"

// Role is the reporter's position in a run. Standalone and leader runs
// coordinate the run's lifecycle records; workers only contribute samples.
type Role int

const (
	RoleStandalone Role = iota
	RoleLeader
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleWorker:
		return "worker"
	default:
		return "standalone"
	}
}

// Coordinator reports whether this role owns the run's start and end records.
func (r Role) Coordinator() bool {
	return r != RoleWorker
}

// Distributed reports whether the run id is supplied externally rather than
// generated locally.
func (r Role) Distributed() bool {
	return r != RoleStandalone
}

// Invocation is what the reporter learns from the host program's argv.
type Invocation struct {
	Role       Role
	NumClients int
}

// ParseInvocation inspects the host's raw argument list for the
// leader/worker markers and the client count. It deliberately does not
// assume any flag-parsing library: the argv belongs to the host program and
// may contain flags the reporter has never heard of. If both markers are
// present the worker marker wins, so a misconfigured process never writes
// lifecycle records it does not own.
func ParseInvocation(args []string) Invocation {
	inv := Invocation{Role: RoleStandalone, NumClients: 1}

	for i, arg := range args {
		switch arg {
		case "--master":
			if inv.Role != RoleWorker {
				inv.Role = RoleLeader
			}
		case "--worker":
			inv.Role = RoleWorker
		case "-c", "--clients":
			if i+1 < len(args) {
				if n, err := strconv.Atoi(args[i+1]); err == nil {
					inv.NumClients = n
				}
			}
		}
	}
	return inv
}
