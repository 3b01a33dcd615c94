package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/model"
)

func TestHasPermission(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		held     model.Role
		required []model.Role
		want     bool
	}{
		{"member against admin-or-member", model.RoleMember, []model.Role{model.RoleAdmin, model.RoleMember}, true},
		{"viewer against admin", model.RoleViewer, []model.Role{model.RoleAdmin}, false},
		{"owner against anything", model.RoleOwner, []model.Role{model.RoleAdmin}, true},
		{"admin against owner", model.RoleAdmin, []model.Role{model.RoleOwner}, false},
		{"equal role", model.RoleMember, []model.Role{model.RoleMember}, true},
		{"empty requirement always passes", model.RoleViewer, nil, true},
		{"unknown held role fails", model.Role("root"), []model.Role{model.RoleViewer}, false},
		{"unknown required roles fail closed", model.RoleOwner, []model.Role{model.Role("root")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HasPermission(tc.held, tc.required))
		})
	}
}
