package auth

import "testing"

func TestIdentity_HasGroup(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		group    string
		want     bool
	}{
		{
			name:     "nil identity",
			identity: nil,
			group:    "ADMIN",
			want:     false,
		},
		{
			name:     "empty groups",
			identity: &Identity{PermissionGroups: []string{}},
			group:    "ADMIN",
			want:     false,
		},
		{
			name:     "has group",
			identity: &Identity{PermissionGroups: []string{"BACKUP_READ", "ADMIN"}},
			group:    "ADMIN",
			want:     true,
		},
		{
			name:     "does not have group",
			identity: &Identity{PermissionGroups: []string{"BACKUP_READ"}},
			group:    "ADMIN",
			want:     false,
		},
		{
			name:     "case sensitive",
			identity: &Identity{PermissionGroups: []string{"admin"}},
			group:    "ADMIN",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.HasGroup(tt.group); got != tt.want {
				t.Errorf("Identity.HasGroup() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentity_Clone(t *testing.T) {
	orig := &Identity{SubjectID: "u1", PermissionGroups: []string{"ADMIN"}}
	c := orig.clone()
	c.PermissionGroups[0] = "CHANGED"

	if orig.PermissionGroups[0] != "ADMIN" {
		t.Errorf("clone shares group slice: original = %v", orig.PermissionGroups)
	}
	if c.SubjectID != "u1" {
		t.Errorf("SubjectID = %v, want u1", c.SubjectID)
	}
}
