// Package policy computes, for a given actor and order, whether read/write is
// permitted. It is a pure function of the actor variant and the order's
// project/vendor references; it performs no I/O and has no side effects.
package policy

// ActorKind tags the actor variant. Permissions dispatch on the variant, never
// on raw role strings scattered across handlers.
type ActorKind string

const (
	KindOwner    ActorKind = "owner"
	KindEmployee ActorKind = "employee"
	KindVendor   ActorKind = "vendor"
	KindClient   ActorKind = "client"
)

// Actor is the tagged-variant identity every operation receives. ProjectIDs
// carries the employee's project assignments or the client's owned projects;
// it is empty for owners and vendors.
type Actor struct {
	ID         uint
	Kind       ActorKind
	ProjectIDs []uint
}

func Owner(id uint) Actor {
	return Actor{ID: id, Kind: KindOwner}
}

func Employee(id uint, projectIDs ...uint) Actor {
	return Actor{ID: id, Kind: KindEmployee, ProjectIDs: projectIDs}
}

func Vendor(id uint) Actor {
	return Actor{ID: id, Kind: KindVendor}
}

func Client(id uint, projectIDs ...uint) Actor {
	return Actor{ID: id, Kind: KindClient, ProjectIDs: projectIDs}
}

// onProject reports whether the actor's project set contains id.
func (a Actor) onProject(id uint) bool {
	for _, p := range a.ProjectIDs {
		if p == id {
			return true
		}
	}
	return false
}
