package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleSuperAdmin, ParseRole(" Super_Admin "))
	assert.True(t, ParseRole("system_admin").Elevated())
	assert.False(t, ParseRole("manager").Elevated())
	assert.True(t, ParseRole("manager").TenantWide())
	assert.False(t, ParseRole("auditor").TenantWide())
}

func TestResolve_Elevated(t *testing.T) {
	caller := Caller{Role: RoleSuperAdmin, TenantID: 1, UserID: 9}

	t.Run("no tenant requested means all tenants", func(t *testing.T) {
		s := Resolve(caller, Request{})

		assert.True(t, s.AllTenants)
		assert.False(t, s.Empty)
	})

	t.Run("specific tenant honored", func(t *testing.T) {
		s := Resolve(caller, Request{TenantID: 42, LocationIDs: []int64{3, 1, 3}})

		assert.False(t, s.AllTenants)
		assert.Equal(t, int64(42), s.TenantID)
		assert.Equal(t, []int64{1, 3}, s.LocationIDs)
	})
}

func TestResolve_TenantPinning(t *testing.T) {
	roles := []Role{RoleCompanyAdmin, RoleManager, RoleSupervisor, RoleInspector, Role("unknown")}
	requested := []int64{0, 1, 2, 99, -5, 1 << 40}

	for _, role := range roles {
		for _, tenant := range requested {
			caller := Caller{Role: role, TenantID: 2, UserID: 5, GrantedLocationIDs: []int64{10}}

			s := Resolve(caller, Request{TenantID: tenant})

			assert.False(t, s.AllTenants, "role %s tenant %d", role, tenant)
			assert.Equal(t, int64(2), s.TenantID, "role %s tenant %d", role, tenant)
		}
	}
}

func TestResolve_LocationGrants(t *testing.T) {
	t.Run("tenant-wide roles keep requested locations", func(t *testing.T) {
		caller := Caller{Role: RoleManager, TenantID: 2}

		s := Resolve(caller, Request{LocationIDs: []int64{5, 6}})

		assert.Equal(t, []int64{5, 6}, s.LocationIDs)
		assert.False(t, s.Empty)
	})

	t.Run("no request narrows to grants", func(t *testing.T) {
		caller := Caller{Role: RoleSupervisor, TenantID: 2, GrantedLocationIDs: []int64{8, 4}}

		s := Resolve(caller, Request{})

		assert.Equal(t, []int64{4, 8}, s.LocationIDs)
		assert.False(t, s.Empty)
	})

	t.Run("request intersected with grants", func(t *testing.T) {
		caller := Caller{Role: RoleInspector, TenantID: 2, GrantedLocationIDs: []int64{4, 8}}

		s := Resolve(caller, Request{LocationIDs: []int64{8, 9}})

		assert.Equal(t, []int64{8}, s.LocationIDs)
		assert.False(t, s.Empty)
	})

	t.Run("disjoint request is empty not an error", func(t *testing.T) {
		caller := Caller{Role: RoleInspector, TenantID: 2, GrantedLocationIDs: []int64{4}}

		s := Resolve(caller, Request{LocationIDs: []int64{9}})

		assert.True(t, s.Empty)
		assert.Empty(t, s.LocationIDs)
	})

	t.Run("empty grant set fails closed", func(t *testing.T) {
		caller := Caller{Role: RoleSupervisor, TenantID: 2}

		s := Resolve(caller, Request{})

		assert.True(t, s.Empty)
		assert.NotNil(t, s.LocationIDs)
		assert.Empty(t, s.LocationIDs)
	})

	t.Run("non-elevated caller without tenant sees nothing", func(t *testing.T) {
		s := Resolve(Caller{Role: RoleManager}, Request{TenantID: 3})

		assert.True(t, s.Empty)
		assert.False(t, s.AllTenants)
	})

	t.Run("evaluator filter passes through", func(t *testing.T) {
		caller := Caller{Role: RoleManager, TenantID: 2}

		s := Resolve(caller, Request{EvaluatorIDs: []int64{12, 11, 12}})

		assert.Equal(t, []int64{11, 12}, s.EvaluatorIDs)
	})
}
