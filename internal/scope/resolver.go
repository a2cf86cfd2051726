package scope

import (
	"sort"
	"strings"
)

type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleSystemAdmin  Role = "system_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleManager      Role = "manager"
	RoleSupervisor   Role = "supervisor"
	RoleInspector    Role = "inspector"
)

// ParseRole normalizes a role string. Unknown roles are kept verbatim and
// treated as location-granted by the resolver.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Elevated roles may see any or all tenants.
func (r Role) Elevated() bool {
	return r == RoleSuperAdmin || r == RoleSystemAdmin
}

// TenantWide roles see every location of their own tenant.
func (r Role) TenantWide() bool {
	return r.Elevated() || r == RoleCompanyAdmin || r == RoleManager
}

// Caller is the authenticated identity handed over by the authentication collaborator.
type Caller struct {
	Role               Role
	TenantID           int64
	UserID             int64
	GrantedLocationIDs []int64
}

// Request is the visibility-relevant part of the caller's filters.
type Request struct {
	// TenantID is only honored for elevated callers. Zero means "not specified".
	TenantID     int64
	LocationIDs  []int64
	EvaluatorIDs []int64
}

// Scope is the resolved visibility window for one request.
type Scope struct {
	AllTenants   bool
	TenantID     int64
	LocationIDs  []int64
	EvaluatorIDs []int64
	// Empty means nothing is visible; callers must not query storage.
	Empty bool
}

// Resolve applies tenant, role and location visibility rules. Any filter that
// would widen a non-elevated caller's view is overridden without error.
func Resolve(caller Caller, req Request) Scope {
	s := Scope{
		TenantID:     caller.TenantID,
		LocationIDs:  dedupe(req.LocationIDs),
		EvaluatorIDs: dedupe(req.EvaluatorIDs),
	}

	if caller.Role.Elevated() {
		s.TenantID = req.TenantID
		s.AllTenants = req.TenantID == 0
		return s
	}

	if caller.TenantID == 0 {
		s.Empty = true
		return s
	}

	if caller.Role.TenantWide() {
		return s
	}

	granted := dedupe(caller.GrantedLocationIDs)
	if len(granted) == 0 {
		s.Empty = true
		s.LocationIDs = []int64{}
		return s
	}
	if len(s.LocationIDs) == 0 {
		s.LocationIDs = granted
		return s
	}

	s.LocationIDs = intersect(s.LocationIDs, granted)
	if len(s.LocationIDs) == 0 {
		s.Empty = true
	}
	return s
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func intersect(a, b []int64) []int64 {
	set := make(map[int64]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	out := []int64{}
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
