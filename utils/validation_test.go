package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grantRequest struct {
	ResourceID string   `json:"resource_id" validate:"identifier,max=1024"`
	Action     string   `json:"action" validate:"identifier,max=128"`
	Owner      string   `json:"owner,omitempty" validate:"omitempty,oneof=organization user role"`
	RoleIDs    []string `json:"role_ids,omitempty" validate:"omitempty,dive,identifier"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		req        grantRequest
		wantFields []string
	}{
		{"valid", grantRequest{ResourceID: "/api/*", Action: "read"}, nil},
		{"valid with roles", grantRequest{ResourceID: "/x", Action: "*", RoleIDs: []string{"admin"}}, nil},
		{"missing action", grantRequest{ResourceID: "/x"}, []string{"action"}},
		{"whitespace in resource", grantRequest{ResourceID: "/a b", Action: "read"}, []string{"resource_id"}},
		{"bad owner", grantRequest{ResourceID: "/x", Action: "read", Owner: "group"}, []string{"owner"}},
		{"blank role id", grantRequest{ResourceID: "/x", Action: "read", RoleIDs: []string{"ok", ""}}, []string{"role_ids[1]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			fields := GetValidationFields(err)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := ValidateStruct(grantRequest{})
	require.Error(t, err)
	assert.Equal(t, "Validation failed", err.Error())
	assert.Equal(t, "action must not be blank or contain whitespace", GetValidationFields(err)["action"])

	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
}
