package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	desc := "Acme tenant"
	org := NewOrganization("acme", "Acme", &desc)

	assert.Equal(t, "acme", org.ID)
	assert.Equal(t, "Acme", org.Name)
	require.NotNil(t, org.Description)
	assert.Equal(t, desc, *org.Description)
	assert.False(t, org.CreatedAt.IsZero())
	assert.Equal(t, org.CreatedAt, org.UpdatedAt)
}

func TestNewOrganization_GeneratesID(t *testing.T) {
	a := NewOrganization("", "A", nil)
	b := NewOrganization("", "B", nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "organization", Organization{}.TableName())
	assert.Equal(t, "users", User{}.TableName())
	assert.Equal(t, "role", Role{}.TableName())
	assert.Equal(t, "resource", Resource{}.TableName())
	assert.Equal(t, "user_permission", UserPermission{}.TableName())
	assert.Equal(t, "role_permission", RolePermission{}.TableName())
	assert.Equal(t, "user_role", UserRole{}.TableName())
}

func TestGrantFilter_Matches(t *testing.T) {
	tests := []struct {
		name     string
		filter   GrantFilter
		resource string
		action   string
		want     bool
	}{
		{"empty filter", GrantFilter{}, "/a/*", "read", true},
		{"resource equal", GrantFilter{ResourceID: "/a/*"}, "/a/*", "read", true},
		{"resource is not pattern matched", GrantFilter{ResourceID: "/a/b"}, "/a/*", "read", false},
		{"action equal", GrantFilter{Action: "read"}, "/a", "read", true},
		{"wildcard action is literal", GrantFilter{Action: "read"}, "/a", "*", false},
		{"both", GrantFilter{ResourceID: "/a", Action: "write"}, "/a", "write", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.resource, tt.action))
		})
	}
}

func TestEffectivePermissionConversion(t *testing.T) {
	up := UserPermission{OrgID: "o", UserID: "u1", ResourceID: "/x", Action: "read"}
	rp := RolePermission{OrgID: "o", RoleID: "r1", ResourceID: "/y/*", Action: "*"}

	ue := FromUserPermission(up)
	assert.Equal(t, SourceUser, ue.Source)
	assert.Equal(t, "u1", ue.SourceID)
	assert.Equal(t, "/x", ue.ResourceID)

	re := FromRolePermission(rp)
	assert.Equal(t, SourceRole, re.Source)
	assert.Equal(t, "r1", re.SourceID)
	assert.Equal(t, "*", re.Action)
}

func TestValue_JSON(t *testing.T) {
	input := `{"enabled":true,"limit":10.5,"name":"x","tags":["a",null],"nested":{"k":1}}`

	v, err := ParseValue([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	fields, ok := v.AsObject()
	require.True(t, ok)
	enabled, ok := fields["enabled"].AsBool()
	assert.True(t, ok)
	assert.True(t, enabled)
	limit, _ := fields["limit"].AsNumber()
	assert.Equal(t, 10.5, limit)
	tags, _ := fields["tags"].AsArray()
	require.Len(t, tags, 2)
	assert.True(t, tags[1].IsNull())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))

	again, err := ParseValue(out)
	require.NoError(t, err)
	assert.True(t, v.Equal(again))
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestValue_ObjectKeysSorted(t *testing.T) {
	v := ObjectValue(map[string]Value{"b": NumberValue(2), "a": StringValue("1")})

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":2}`, string(out))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, ArrayValue(BoolValue(true)).Equal(ArrayValue(BoolValue(true))))
	assert.False(t, NumberValue(1).Equal(StringValue("1")))
	assert.False(t, ObjectValue(nil).Equal(ObjectValue(map[string]Value{"a": NullValue()})))
}

func TestProperty_UnmarshalMissingValue(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(`{"name":"tier","hidden":true}`), &p))

	assert.Equal(t, "tier", p.Name)
	assert.True(t, p.Hidden)
	assert.True(t, p.Value.IsNull())
}

func TestPropertyOwner_Valid(t *testing.T) {
	assert.True(t, OwnerUser.Valid())
	assert.True(t, OwnerRole.Valid())
	assert.True(t, OwnerOrganization.Valid())
	assert.False(t, PropertyOwner("resource").Valid())
}
