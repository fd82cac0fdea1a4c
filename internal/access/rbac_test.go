package access

import "testing"

func testPolicy() Policy {
	return Policy{
		DefaultRole: "student",
		Roles: map[string]RoleSpec{
			"student": {Permissions: []Permission{
				{Resource: "planner", Actions: []string{"read", "write"}},
				{Resource: "attendance", Actions: []string{"checkin"}},
			}},
			"instructor": {Permissions: []Permission{
				{Resource: "sessions", Actions: []string{"read", "write"}},
			}},
			"admin": {Permissions: []Permission{
				{Resource: "*", Actions: []string{"*"}},
			}},
		},
		Inheritance: map[string][]string{
			"instructor": {"student"},
			"admin":      {"instructor"},
		},
	}
}

func TestCan(t *testing.T) {
	rbac := New(testPolicy())

	cases := []struct {
		role, resource, action string
		want                   bool
	}{
		{"student", "planner", "write", true},
		{"student", "attendance", "checkin", true},
		{"student", "sessions", "write", false},
		{"instructor", "sessions", "write", true},
		{"instructor", "planner", "read", true}, // inherited from student
		{"instructor", "users", "manage", false},
		{"admin", "users", "manage", true},
		{"admin", "anything", "at-all", true},
	}

	for _, tc := range cases {
		if got := rbac.Can(tc.role, tc.resource, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s, %s) = %v, want %v", tc.role, tc.resource, tc.action, got, tc.want)
		}
	}
}

func TestCanUnknownRoleFallsBack(t *testing.T) {
	rbac := New(testPolicy())

	if !rbac.Can("visitor", "planner", "read") {
		t.Error("unknown role should get the default role's permissions")
	}
	if rbac.Can("visitor", "sessions", "write") {
		t.Error("unknown role should not exceed the default role")
	}
}

func TestCanInheritanceCycle(t *testing.T) {
	policy := testPolicy()
	policy.Inheritance["student"] = []string{"instructor"}

	// Must terminate despite student <-> instructor inheriting each other.
	rbac := New(policy)
	if !rbac.Can("student", "sessions", "write") {
		t.Error("cyclic inheritance should still grant the parent's permissions")
	}
}

func TestLoadPolicyMissingFileUsesBuiltin(t *testing.T) {
	rbac, err := LoadPolicy("/nonexistent/roles.yaml")
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if rbac.DefaultRole() != "student" {
		t.Errorf("default role = %q, want student", rbac.DefaultRole())
	}
	if !rbac.Can("student", "attendance", "checkin") {
		t.Error("built-in policy should let students check in")
	}
	if rbac.Can("student", "sessions", "write") {
		t.Error("built-in policy should not let students manage sessions")
	}
	if !rbac.Can("admin", "users", "manage") {
		t.Error("built-in policy should give admins full access")
	}
}
