package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"operator role", RoleOperator, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		role     Role
		min      Role
		expected bool
	}{
		{RoleAdmin, RoleOperator, true},
		{RoleOperator, RoleOperator, true},
		{RoleViewer, RoleOperator, false},
		{RoleViewer, RoleViewer, true},
		{"ghost", RoleViewer, false},
	}

	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.expected {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.min, got, tt.expected)
		}
	}
}

func TestUser_HasPermission(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	operator := &User{Role: RoleOperator}
	viewer := &User{Role: RoleViewer}
	nobody := &User{Role: "unknown"}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		// Admin permissions - should have all permissions
		{"admin can manage users", admin, "manage_users", true},
		{"admin can spawn vehicles", admin, "spawn_vehicle", true},

		// Operator permissions - can steer the simulation
		{"operator can view vehicles", operator, "view_vehicles", true},
		{"operator can spawn vehicles", operator, "spawn_vehicle", true},
		{"operator can remove vehicles", operator, "remove_vehicle", true},
		{"operator cannot manage users", operator, "manage_users", false},

		// Viewer permissions - read-only access
		{"viewer can view vehicles", viewer, "view_vehicles", true},
		{"viewer can view network", viewer, "view_network", true},
		{"viewer can view trips", viewer, "view_trips", true},
		{"viewer cannot spawn vehicles", viewer, "spawn_vehicle", false},
		{"viewer cannot remove vehicles", viewer, "remove_vehicle", false},

		{"unknown role has nothing", nobody, "view_vehicles", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}
