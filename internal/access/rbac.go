// Package access answers "may this role do this action on this resource",
// driven by a YAML policy with role inheritance. Role membership itself
// lives on the user record, not here.
package access

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type Permission struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
}

type RoleSpec struct {
	Description string       `yaml:"description"`
	Permissions []Permission `yaml:"permissions"`
}

type Policy struct {
	DefaultRole string              `yaml:"default_role"`
	Roles       map[string]RoleSpec `yaml:"roles"`
	Inheritance map[string][]string `yaml:"inheritance"`
}

// defaultPolicy applies when no policy file is present. Students own their
// planner and can check in, instructors additionally run courses and
// sessions, admins can do anything.
const defaultPolicy = `
default_role: student
roles:
  student:
    description: Course participant
    permissions:
      - resource: planner
        actions: ["read", "write"]
      - resource: attendance
        actions: ["checkin", "read"]
      - resource: courses
        actions: ["read"]
  instructor:
    description: Runs courses and attendance sessions
    permissions:
      - resource: courses
        actions: ["write"]
      - resource: sessions
        actions: ["read", "write"]
  admin:
    description: Full access
    permissions:
      - resource: "*"
        actions: ["*"]
inheritance:
  instructor: ["student"]
  admin: ["instructor"]
`

// RBAC is immutable once built, so lookups need no locking.
type RBAC struct {
	defaultRole string
	// permissions per role, inherited ones flattened in at build time
	expanded map[string][]Permission
}

// LoadPolicy reads the YAML policy at path. A missing file falls back to
// the built-in policy so a fresh install works without one.
func LoadPolicy(path string) (*RBAC, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("RBAC policy file not found, using built-in policy", "path", path)
		data = []byte(defaultPolicy)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	rbac := New(policy)
	slog.Info("RBAC policy loaded", "roles", len(policy.Roles), "default_role", policy.DefaultRole)
	return rbac, nil
}

// New flattens inheritance into a per-role permission list.
func New(policy Policy) *RBAC {
	expanded := make(map[string][]Permission, len(policy.Roles))
	for name := range policy.Roles {
		seen := map[string]bool{}
		expanded[name] = collect(policy, name, seen)
	}
	return &RBAC{
		defaultRole: policy.DefaultRole,
		expanded:    expanded,
	}
}

// collect gathers a role's permissions plus everything it inherits. The
// seen map breaks inheritance cycles.
func collect(policy Policy, role string, seen map[string]bool) []Permission {
	if seen[role] {
		return nil
	}
	seen[role] = true

	perms := append([]Permission(nil), policy.Roles[role].Permissions...)
	for _, parent := range policy.Inheritance[role] {
		perms = append(perms, collect(policy, parent, seen)...)
	}
	return perms
}

func (r *RBAC) DefaultRole() string {
	return r.defaultRole
}

// Can reports whether the role may perform action on resource. An unknown
// role falls back to the policy's default role.
func (r *RBAC) Can(role string, resource string, action string) bool {
	perms, ok := r.expanded[role]
	if !ok {
		if role == r.defaultRole {
			return false
		}
		return r.Can(r.defaultRole, resource, action)
	}

	for _, perm := range perms {
		if perm.Resource != "*" && perm.Resource != resource {
			continue
		}
		for _, act := range perm.Actions {
			if act == "*" || act == action {
				return true
			}
		}
	}
	return false
}
