package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/middleware"
	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/utils"
)

// AdminHandler serves user management for admins.  Routes using it
// must sit behind JWTAuth and RequireRole("admin").
type AdminHandler struct {
	Users      UserStore
	BcryptCost int
	log        *logrus.Entry
}

func NewAdminHandler(users UserStore, bcryptCost int) *AdminHandler {
	return &AdminHandler{Users: users, BcryptCost: bcryptCost, log: logrus.WithField("component", "admin")}
}

type adminUserDTO struct {
	ID            uint64  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	PhotoPath     *string `json:"photo_path"`
	Role          string  `json:"role"`
	CreatedAt     string  `json:"created_at"`
	TotalBookings int     `json:"total_bookings"`
	TotalSpent    string  `json:"total_spent"`
}

// ListUsers returns every user with booking statistics.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.Users.ListWithStats(ctx)
	if err != nil {
		h.log.WithError(err).Error("list users failed")
		return fail(c, "Failed to load users")
	}
	out := make([]adminUserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserDTO{
			ID:            u.ID,
			Username:      u.Username,
			Email:         u.Email,
			FullName:      u.FullName,
			Phone:         u.Phone,
			Address:       u.Address,
			PhotoPath:     u.PhotoPath,
			Role:          u.Role,
			CreatedAt:     u.CreatedAt.UTC().Format(time.DateTime),
			TotalBookings: u.TotalBookings,
			TotalSpent:    money(u.TotalSpent),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": out})
}

// CreateUser adds a user with the requested role (default "user").
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req userForm
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if msg := req.check(); msg != "" {
		return fail(c, msg)
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		return fail(c, "Invalid role")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	msg, err := ensureUnique(ctx, h.Users, req.Username, req.Email, 0)
	if err != nil {
		h.log.WithError(err).Error("uniqueness check failed")
		return fail(c, "Failed to create user")
	}
	if msg != "" {
		return fail(c, msg)
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		h.log.WithError(err).Error("hash password failed")
		return fail(c, "Failed to create user")
	}
	id, err := h.Users.Create(ctx, &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         req.Role,
	})
	if err != nil {
		if msg, ok := duplicateMessage(err); ok {
			return fail(c, msg)
		}
		h.log.WithError(err).Error("create user failed")
		return fail(c, "Failed to create user")
	}
	h.log.WithFields(logrus.Fields{"user_id": id, "role": req.Role}).Info("user created by admin")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User created successfully", "user_id": id})
}

// updateUserReq: every field except id is optional; blank strings are
// treated as absent, as the admin form sends empty inputs.
type updateUserReq struct {
	ID       *uint64 `json:"id" query:"id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// present returns the trimmed value of p, or nil when p is nil or blank.
func present(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := utils.Sanitize(*p)
	return &v
}

// UpdateUser applies a partial update built from the fields present in
// the request.  Admins cannot change their own role.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if req.ID == nil {
		return fail(c, "User ID is required")
	}
	if *req.ID == 0 {
		return fail(c, "Invalid user ID")
	}
	id := *req.ID

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, "User not found")
		}
		h.log.WithError(err).WithField("user_id", id).Error("load user failed")
		return fail(c, "Failed to update user")
	}

	var patch model.UserPatch
	if v := present(req.Username); v != nil && *v != target.Username {
		taken, err := h.Users.UsernameTaken(ctx, *v, id)
		if err != nil {
			h.log.WithError(err).Error("username check failed")
			return fail(c, "Failed to update user")
		}
		if taken {
			return fail(c, "Username already taken")
		}
		patch.Username = v
	}
	if v := present(req.Email); v != nil {
		email := strings.ToLower(*v)
		if !utils.ValidEmail(email) {
			return fail(c, "Invalid email format")
		}
		if email != target.Email {
			taken, err := h.Users.EmailTaken(ctx, email, id)
			if err != nil {
				h.log.WithError(err).Error("email check failed")
				return fail(c, "Failed to update user")
			}
			if taken {
				return fail(c, "Email already taken")
			}
			patch.Email = &email
		}
	}
	// full_name, phone and address may be cleared, so only nil skips them.
	if req.FullName != nil {
		v := utils.Sanitize(*req.FullName)
		patch.FullName = &v
	}
	if req.Phone != nil {
		v := utils.Sanitize(*req.Phone)
		patch.Phone = &v
	}
	if req.Address != nil {
		v := utils.Sanitize(*req.Address)
		patch.Address = &v
	}
	if v := present(req.Role); v != nil {
		role := strings.ToLower(*v)
		if !model.ValidRole(role) {
			return fail(c, "Invalid role")
		}
		if self, _ := middleware.CurrentUserID(c); self == id && role != target.Role {
			return fail(c, "You cannot change your own role")
		}
		patch.Role = &role
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < utils.MinPasswordLength {
			return fail(c, "Password must be at least 6 characters")
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			h.log.WithError(err).Error("hash password failed")
			return fail(c, "Failed to update user")
		}
		patch.PasswordHash = &hash
	}

	affected, err := h.Users.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoFields):
			return fail(c, "No fields to update")
		case errors.Is(err, repository.ErrUsernameExists):
			return fail(c, "Username already taken")
		case errors.Is(err, repository.ErrEmailExists):
			return fail(c, "Email already taken")
		}
		h.log.WithError(err).WithField("user_id", id).Error("update user failed")
		return fail(c, "Failed to update user")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"message":       "User updated successfully",
		"affected_rows": affected,
	})
}

type deleteUserReq struct {
	ID *uint64 `json:"id" query:"id"`
}

// DeleteUser removes a user and their bookings.  Admin accounts and
// the caller's own account cannot be deleted.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	var req deleteUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if req.ID == nil {
		return fail(c, "User ID is required")
	}
	if *req.ID == 0 {
		return fail(c, "Invalid user ID")
	}
	id := *req.ID
	if self, _ := middleware.CurrentUserID(c); self == id {
		return fail(c, "Cannot delete your own account")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, "User not found")
		}
		h.log.WithError(err).WithField("user_id", id).Error("load user failed")
		return fail(c, "Failed to delete user")
	}
	if target.Role == model.RoleAdmin {
		return fail(c, "Cannot delete admin accounts")
	}

	deleted, err := h.Users.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, "User not found")
		}
		h.log.WithError(err).WithField("user_id", id).Error("delete user failed")
		return fail(c, "Failed to delete user")
	}
	h.log.WithFields(logrus.Fields{"user_id": id, "deleted_bookings": deleted}).Info("user deleted")
	return c.JSON(http.StatusOK, echo.Map{
		"success":          true,
		"message":          "User deleted successfully",
		"deleted_bookings": deleted,
	})
}
