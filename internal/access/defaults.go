package access

// DefaultsFor returns the canonical default permission set for a role. The
// table below is the access policy itself: changing what a cashier may touch
// is a change here and nowhere else. The returned map is freshly allocated on
// every call so callers can mutate it safely.
func DefaultsFor(role Role) (PermissionSet, error) {
	switch role {
	case RoleAdmin:
		return PermissionSet{
			ModuleDashboard: {Read: true, Write: true},
			ModuleReports:   {Read: true, Write: true},
			ModuleInventory: {Read: true, Write: true},
			ModuleOrders:    {Read: true, Write: true},
			ModuleCustomers: {Read: true, Write: true},
			ModuleSettings:  {Read: true, Write: true},
		}, nil
	case RoleSubAdmin:
		return PermissionSet{
			ModuleDashboard: {Read: true, Write: true},
			ModuleReports:   {},
			ModuleInventory: {},
			ModuleOrders:    {},
			ModuleCustomers: {},
			ModuleSettings:  {},
		}, nil
	case RoleCashier:
		return PermissionSet{
			ModuleDashboard: {Read: true},
			ModuleReports:   {},
			ModuleInventory: {Read: true},
			ModuleOrders:    {Read: true, Write: true},
			ModuleCustomers: {Read: true, Write: true},
			ModuleSettings:  {},
		}, nil
	case RoleUser:
		return PermissionSet{
			ModuleDashboard: {},
			ModuleReports:   {},
			ModuleInventory: {},
			ModuleOrders:    {},
			ModuleCustomers: {},
			ModuleSettings:  {},
		}, nil
	}
	_, err := ParseRole(string(role))
	return nil, err
}
