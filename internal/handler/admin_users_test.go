package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/utils"
)

func modelUser(username, email, role string) model.User {
	return model.User{Username: username, Email: email, FullName: username, Phone: "555", Role: role}
}

// adminFixture: id 1 is the calling admin, 2 another admin, 3 a user
// holding two bookings.
func adminFixture() (*AdminHandler, *memUsers) {
	users := newMemUsers()
	users.add(modelUser("root", "root@example.com", model.RoleAdmin))
	users.add(modelUser("ops", "ops@example.com", model.RoleAdmin))
	users.add(modelUser("ann", "ann@example.com", model.RoleUser))
	users.bookings[3] = 2
	return NewAdminHandler(users, 4), users
}

func TestAdminListUsers(t *testing.T) {
	h, _ := adminFixture()
	out := call(t, h.ListUsers, http.MethodGet, "", 1)
	require.Equal(t, true, out["success"])
	list := out["users"].([]any)
	require.Len(t, list, 3)
	ann := list[2].(map[string]any)
	assert.Equal(t, "ann", ann["username"])
	assert.Equal(t, float64(2), ann["total_bookings"])
	assert.Equal(t, "0.00", ann["total_spent"])
	assert.NotContains(t, ann, "password_hash")
}

func TestAdminCreateUser(t *testing.T) {
	h, users := adminFixture()

	out := call(t, h.CreateUser, http.MethodPost,
		`{"username":"kim","email":"kim@example.com","password":"secret1","full_name":"Kim","phone":"1","role":"superuser"}`, 1)
	assert.Equal(t, "Invalid role", out["message"])

	out = call(t, h.CreateUser, http.MethodPost,
		`{"username":"kim","email":"kim@example.com","password":"secret1","full_name":"Kim","phone":"1","role":"admin"}`, 1)
	require.Equal(t, true, out["success"], out["message"])
	assert.Equal(t, float64(4), out["user_id"])
	assert.Equal(t, model.RoleAdmin, users.byID[4].Role)
	assert.True(t, utils.VerifyPassword(users.byID[4].PasswordHash, "secret1"))

	out = call(t, h.CreateUser, http.MethodPost,
		`{"username":"kim2","email":"kim@example.com","password":"secret1","full_name":"Kim","phone":"1"}`, 1)
	assert.Equal(t, "Email already exists", out["message"])
}

func TestAdminUpdateUser(t *testing.T) {
	cases := []struct {
		name, body, msg string
	}{
		{"missing id", `{"username":"x"}`, "User ID is required"},
		{"zero id", `{"id":0}`, "Invalid user ID"},
		{"unknown", `{"id":42,"username":"x"}`, "User not found"},
		{"nothing", `{"id":3}`, "No fields to update"},
		{"same username", `{"id":3,"username":"ann"}`, "No fields to update"},
		{"username taken", `{"id":3,"username":"ops"}`, "Username already taken"},
		{"email taken", `{"id":3,"email":"ROOT@example.com"}`, "Email already taken"},
		{"bad email", `{"id":3,"email":"nope"}`, "Invalid email format"},
		{"bad role", `{"id":3,"role":"owner"}`, "Invalid role"},
		{"short password", `{"id":3,"password":"123"}`, "Password must be at least 6 characters"},
		{"own role", `{"id":1,"role":"user"}`, "You cannot change your own role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := adminFixture()
			out := call(t, h.UpdateUser, http.MethodPut, tc.body, 1)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.msg, out["message"])
		})
	}

	t.Run("applies patch", func(t *testing.T) {
		h, users := adminFixture()
		out := call(t, h.UpdateUser, http.MethodPut,
			`{"id":3,"email":"Ann.Lee@Example.com","address":"","role":"admin","password":"newpass","phone":" 777 "}`, 1)
		require.Equal(t, true, out["success"], out["message"])
		assert.Equal(t, float64(1), out["affected_rows"])

		u := users.byID[3]
		assert.Equal(t, "ann.lee@example.com", u.Email)
		assert.Equal(t, model.RoleAdmin, u.Role)
		assert.Equal(t, "777", u.Phone)
		assert.Equal(t, "ann", u.Username)
		assert.True(t, utils.VerifyPassword(u.PasswordHash, "newpass"))
	})

	t.Run("own role unchanged is allowed", func(t *testing.T) {
		h, _ := adminFixture()
		out := call(t, h.UpdateUser, http.MethodPost, `{"id":1,"role":"admin","full_name":"Root"}`, 1)
		assert.Equal(t, true, out["success"], out["message"])
	})
}

func TestAdminDeleteUser(t *testing.T) {
	cases := []struct {
		name, body, msg string
	}{
		{"missing id", `{}`, "User ID is required"},
		{"self", `{"id":1}`, "Cannot delete your own account"},
		{"admin", `{"id":2}`, "Cannot delete admin accounts"},
		{"unknown", `{"id":9}`, "User not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, users := adminFixture()
			out := call(t, h.DeleteUser, http.MethodDelete, tc.body, 1)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.msg, out["message"])
			assert.Len(t, users.byID, 3)
		})
	}

	h, users := adminFixture()
	out := call(t, h.DeleteUser, http.MethodDelete, `{"id":3}`, 1)
	require.Equal(t, true, out["success"], out["message"])
	assert.Equal(t, float64(2), out["deleted_bookings"])
	assert.NotContains(t, users.byID, uint64(3))
}
