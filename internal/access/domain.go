package access

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Module identifies one gated area of the back office.
type Module string

// The fixed permission taxonomy. Access to anything in the application is
// expressed in terms of these six modules; there is no extension mechanism.
const (
	ModuleDashboard Module = "dashboard"
	ModuleReports   Module = "reports"
	ModuleInventory Module = "inventory"
	ModuleOrders    Module = "orders"
	ModuleCustomers Module = "customers"
	ModuleSettings  Module = "settings"
)

// Modules lists every valid module in stable order.
func Modules() []Module {
	return []Module{
		ModuleDashboard,
		ModuleReports,
		ModuleInventory,
		ModuleOrders,
		ModuleCustomers,
		ModuleSettings,
	}
}

// ValidModule reports whether name is a member of the fixed module set.
func ValidModule(name string) bool {
	switch Module(name) {
	case ModuleDashboard, ModuleReports, ModuleInventory, ModuleOrders, ModuleCustomers, ModuleSettings:
		return true
	}
	return false
}

// Role is a coarse-grained category determining a user's default permissions.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubAdmin Role = "sub_admin"
	RoleCashier  Role = "cashier"
	RoleUser     Role = "user"
)

// ParseRole validates name against the role enumeration.
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case RoleAdmin, RoleSubAdmin, RoleCashier, RoleUser:
		return Role(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, name)
}

// Grant is the authorization value for one module. Earlier deployments stored
// a bare boolean per module; that legacy form is normalized on decode to
// read = write = value so nothing downstream ever branches on shape.
type Grant struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// UnmarshalJSON accepts either a boolean or an object with exactly boolean
// "read" and "write" fields. A partial object such as {"read":true} is
// rejected rather than defaulting the missing field, so a malformed patch can
// never silently weaken a module.
func (g *Grant) UnmarshalJSON(data []byte) error {
	// json.Unmarshal treats null as a no-op against a bool target, which
	// would slip through the legacy branch below as {false,false}.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrInvalidGrant
	}

	var legacy bool
	if err := json.Unmarshal(data, &legacy); err == nil {
		g.Read, g.Write = legacy, legacy
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ErrInvalidGrant
	}
	if len(fields) != 2 {
		return ErrInvalidGrant
	}
	for _, key := range []string{"read", "write"} {
		raw, ok := fields[key]
		if !ok {
			return ErrInvalidGrant
		}
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return ErrInvalidGrant
		}
		if key == "read" {
			g.Read = v
		} else {
			g.Write = v
		}
	}
	return nil
}

// PermissionSet maps each module to its grant. A complete set carries exactly
// the six fixed modules.
type PermissionSet map[Module]Grant

// Clone returns an independent copy of the set.
func (p PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(p))
	for m, g := range p {
		out[m] = g
	}
	return out
}

// Complete reports whether every module in the taxonomy is present.
func (p PermissionSet) Complete() bool {
	for _, m := range Modules() {
		if _, ok := p[m]; !ok {
			return false
		}
	}
	return true
}

// Claims is the decoded claim set attached to a verified bearer token.
type Claims struct {
	UID         string
	Role        Role
	Permissions PermissionSet
}

// ClaimSet is the payload written to the claims store for a user. A write
// fully replaces whatever claims the user had before.
type ClaimSet struct {
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
}

// AccessRecord is the per-user row owned by the document store. The claims
// store copy and this record must agree on role and permissions after every
// successful write; that is maintained by the service, not enforced
// transactionally.
type AccessRecord struct {
	UID         string
	Role        Role
	Permissions PermissionSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	// ErrInvalidRole indicates a role name outside the enumeration.
	ErrInvalidRole = errors.New("access: invalid role")
	// ErrUnknownModule indicates a patch key outside the module taxonomy.
	ErrUnknownModule = errors.New("access: unknown permission module")
	// ErrInvalidGrant indicates a grant that is neither a boolean nor a
	// complete {read,write} pair of booleans.
	ErrInvalidGrant = errors.New("access: invalid grant shape")
)
