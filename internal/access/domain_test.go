package access

import (
	"encoding/json"
	"testing"
)

func TestValidModule(t *testing.T) {
	for _, m := range Modules() {
		if !ValidModule(string(m)) {
			t.Fatalf("expected %s to be valid", m)
		}
	}
	for _, name := range []string{"", "Dashboard", "billing", "orders ", "admin"} {
		if ValidModule(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, name := range []string{"admin", "sub_admin", "cashier", "user"} {
		role, err := ParseRole(name)
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", name, err)
		}
		if string(role) != name {
			t.Fatalf("unexpected role %q", role)
		}
	}
	if _, err := ParseRole("superadmin"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestGrantUnmarshalStructured(t *testing.T) {
	var g Grant
	if err := json.Unmarshal([]byte(`{"read":true,"write":false}`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !g.Read || g.Write {
		t.Fatalf("unexpected grant %+v", g)
	}
}

func TestGrantUnmarshalLegacyBoolean(t *testing.T) {
	var g Grant
	if err := json.Unmarshal([]byte(`true`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !g.Read || !g.Write {
		t.Fatalf("legacy true should normalize to read+write, got %+v", g)
	}

	g = Grant{Read: true, Write: true}
	if err := json.Unmarshal([]byte(`false`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Read || g.Write {
		t.Fatalf("legacy false should normalize to no access, got %+v", g)
	}
}

func TestGrantUnmarshalRejectsPartialAndMalformed(t *testing.T) {
	cases := []string{
		`{"read":true}`,
		`{"write":false}`,
		`{"read":true,"write":false,"admin":true}`,
		`{"read":"yes","write":true}`,
		`{"read":1,"write":0}`,
		`"true"`,
		`null`,
		`[]`,
		`{}`,
	}
	for _, raw := range cases {
		var g Grant
		if err := json.Unmarshal([]byte(raw), &g); err == nil {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}
}

func TestPermissionSetCloneIsIndependent(t *testing.T) {
	orig := PermissionSet{ModuleOrders: {Read: true, Write: true}}
	clone := orig.Clone()
	clone[ModuleOrders] = Grant{}
	if !orig[ModuleOrders].Read {
		t.Fatal("mutating clone must not affect original")
	}
}

func TestPermissionSetComplete(t *testing.T) {
	full, err := DefaultsFor(RoleUser)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if !full.Complete() {
		t.Fatal("role defaults should be complete")
	}
	delete(full, ModuleSettings)
	if full.Complete() {
		t.Fatal("set missing a module should not be complete")
	}
}
