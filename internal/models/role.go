package models

// Role identifies one of the host role templates of the cluster.
type Role string

// The linker is the VPN hub joining the static network to every queue,
// control is the Slurm controller; worker and submitter render once per
// queue.
const (
	RoleLinker    Role = "linker"
	RoleControl   Role = "control"
	RoleWorker    Role = "worker"
	RoleSubmitter Role = "submitter"
)

func Roles() []Role {
	return []Role{RoleLinker, RoleControl, RoleWorker, RoleSubmitter}
}

// PerQueue reports whether the role is rendered once per queue rather
// than once per cluster.
func (r Role) PerQueue() bool {
	return r == RoleWorker || r == RoleSubmitter
}

func (r Role) String() string {
	return string(r)
}

// RoleInstance is one concrete rendering task: a role template and,
// for per-queue roles, the queue it is rendered for.
type RoleInstance struct {
	Role  Role
	Queue *Queue
}

func (ri RoleInstance) Name() string {
	if ri.Queue == nil {
		return string(ri.Role)
	}

	return string(ri.Role) + "-" + ri.Queue.Name
}
