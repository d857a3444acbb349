package lifecycle

// Capabilities is the per-role permission set. Role checks happen once,
// here, instead of being scattered through every operation.
type Capabilities struct {
	// ActAnyDepartment allows stage actions regardless of the current
	// stage's owning department.
	ActAnyDepartment bool
	// ManageWorkOrders allows administrative operations: create, release,
	// hold, unhold, cancel, update, restore, close.
	ManageWorkOrders bool
	// ManageRoutings allows authoring and releasing routing definitions.
	ManageRoutings bool
}

func capabilitiesFor(role string) Capabilities {
	switch role {
	case RoleAdmin:
		return Capabilities{ActAnyDepartment: true, ManageWorkOrders: true, ManageRoutings: true}
	case RoleSupervisor:
		return Capabilities{ActAnyDepartment: true, ManageWorkOrders: true, ManageRoutings: true}
	case RoleOperator:
		return Capabilities{}
	default:
		return Capabilities{}
	}
}

// CapabilitiesFor exposes the role lookup for handlers that only need a
// coarse permission check.
func CapabilitiesFor(role string) Capabilities { return capabilitiesFor(role) }

// actingDepartment resolves which department the actor is acting for: an
// explicitly selected department overrides the home department.
func actingDepartment(actor Actor, selected *int64) *int64 {
	if selected != nil {
		return selected
	}
	return actor.DepartmentID
}

// canActAtStage is the authorization gate for stage work: pure predicate of
// (role, acting department, current stage's department).
func canActAtStage(actor Actor, selected *int64, stageDepartmentID int64) error {
	if !validRole(actor.Role) {
		return ErrUnauthorized
	}
	if capabilitiesFor(actor.Role).ActAnyDepartment {
		return nil
	}
	dept := actingDepartment(actor, selected)
	if dept == nil || *dept != stageDepartmentID {
		return ErrDepartmentMismatch
	}
	return nil
}

// requireManage gates administrative operations.
func requireManage(actor Actor) error {
	if !validRole(actor.Role) {
		return ErrUnauthorized
	}
	if !capabilitiesFor(actor.Role).ManageWorkOrders {
		return ErrForbidden
	}
	return nil
}
