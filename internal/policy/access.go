package policy

// OrderRef is the slice of an order the resolver needs: who the order belongs
// to. Passing a reference instead of the full model keeps the package free of
// persistence imports.
type OrderRef struct {
	ProjectID uint
	VendorID  uint
}

// Access is the resolved permission pair.
type Access struct {
	Read  bool
	Write bool
}

// Resolve evaluates the access rules in priority order, first match wins:
//
//  1. platform owner           -> read/write
//  2. employee on the project  -> read/write
//  3. the order's vendor       -> read/write (per-operation gates still apply)
//  4. client owning the project-> read only
//  5. otherwise                -> no access
func Resolve(actor Actor, order OrderRef) Access {
	switch actor.Kind {
	case KindOwner:
		return Access{Read: true, Write: true}
	case KindEmployee:
		if actor.onProject(order.ProjectID) {
			return Access{Read: true, Write: true}
		}
	case KindVendor:
		if actor.ID == order.VendorID {
			return Access{Read: true, Write: true}
		}
	case KindClient:
		if actor.onProject(order.ProjectID) {
			return Access{Read: true}
		}
	}
	return Access{}
}

// CanRead is a convenience wrapper over Resolve.
func CanRead(actor Actor, order OrderRef) bool {
	return Resolve(actor, order).Read
}

// CanWrite is a convenience wrapper over Resolve.
func CanWrite(actor Actor, order OrderRef) bool {
	return Resolve(actor, order).Write
}
