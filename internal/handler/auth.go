package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/config"
	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Photos PhotoSaver
	log    *logrus.Entry
}

func NewAuthHandler(cfg config.Config, u UserStore, p PhotoSaver) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Photos: p, log: logrus.WithField("component", "auth")}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userForm is the body of /register and POST /admin/users, sent as
// JSON or as a (multipart) form.
type userForm struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"full_name" form:"full_name"`
	Phone    string `json:"phone" form:"phone"`
	Address  string `json:"address" form:"address"`
	Role     string `json:"role" form:"role"`
}

type userPart struct {
	ID        uint64  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	PhotoPath *string `json:"photo_path,omitempty"`
	Role      string  `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName,
		Phone: u.Phone, Address: u.Address, PhotoPath: u.PhotoPath, Role: u.Role}
}

// check trims, escapes and validates the form and returns the message
// to show when it is unusable.
func (f *userForm) check() string {
	required := []struct{ name, val string }{
		{"Username", f.Username},
		{"Email", f.Email},
		{"Password", f.Password},
		{"Full name", f.FullName},
		{"Phone", f.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return r.name + " is required"
		}
	}
	f.Username = utils.Sanitize(f.Username)
	f.Email = strings.ToLower(utils.Sanitize(f.Email))
	f.FullName = utils.Sanitize(f.FullName)
	f.Phone = utils.Sanitize(f.Phone)
	f.Address = utils.Sanitize(f.Address)
	f.Role = strings.ToLower(utils.Sanitize(f.Role))

	if !utils.ValidEmail(f.Email) {
		return "Invalid email format"
	}
	if len(f.Password) < utils.MinPasswordLength {
		return "Password must be at least 6 characters long"
	}
	return ""
}

// ensureUnique reports the uniqueness violation message, if any.
func ensureUnique(ctx context.Context, users UserStore, username, email string, excludeID uint64) (string, error) {
	if username != "" {
		taken, err := users.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "Username already exists", nil
		}
	}
	if email != "" {
		taken, err := users.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return "Email already exists", nil
		}
	}
	return "", nil
}

// duplicateMessage maps a uniqueness race lost at insert time.
func duplicateMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		return "Username already exists", true
	case errors.Is(err, repository.ErrEmailExists):
		return "Email already exists", true
	}
	return "", false
}

// Register creates a user with role "user" and returns a token.  A
// photo that cannot be stored is skipped; registration proceeds.
func (h *AuthHandler) Register(c echo.Context) error {
	var req userForm
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if msg := req.check(); msg != "" {
		return fail(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	msg, err := ensureUnique(ctx, h.Users, req.Username, req.Email, 0)
	if err != nil {
		h.log.WithError(err).Error("uniqueness check failed")
		return fail(c, "Registration failed")
	}
	if msg != "" {
		return fail(c, msg)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		h.log.WithError(err).Error("hash password failed")
		return fail(c, "Registration failed")
	}

	u := model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         model.RoleUser,
	}
	if path := h.savePhoto(c); path != "" {
		u.PhotoPath = &path
	}

	uid, err := h.Users.Create(ctx, &u)
	if err != nil {
		if u.PhotoPath != nil {
			_ = h.Photos.Remove(*u.PhotoPath)
		}
		if msg, ok := duplicateMessage(err); ok {
			return fail(c, msg)
		}
		h.log.WithError(err).Error("create user failed")
		return fail(c, "Registration failed")
	}
	u.ID = uid

	token, _, err := utils.IssueToken(h.Cfg.JWTSecret, uid, u.Username, u.Role, h.Cfg.TokenTTL)
	if err != nil {
		h.log.WithError(err).Error("issue token failed")
		return fail(c, "Registration failed")
	}
	h.log.WithFields(logrus.Fields{"user_id": uid, "photo": u.HasPhoto()}).Info("user registered")

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Registration successful",
		"token":   token,
		"user": userPart{
			ID: uid, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role,
		},
	})
}

// savePhoto stores the optional "photo" part of a multipart request and
// returns its path, or "" when there is none or it is unusable.
func (h *AuthHandler) savePhoto(c echo.Context) string {
	if h.Photos == nil {
		return ""
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return ""
	}
	f, err := fh.Open()
	if err != nil {
		h.log.WithError(err).Warn("open uploaded photo failed")
		return ""
	}
	defer f.Close()
	path, err := h.Photos.Save(f, fh.Filename)
	if err != nil {
		h.log.WithError(err).WithField("filename", fh.Filename).Warn("photo skipped")
		return ""
	}
	return path
}

// Login verifies username (or email) and password and returns a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return fail(c, "Username and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.FindByUsernameOrEmail(ctx, utils.Sanitize(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, "Invalid username or password")
		}
		h.log.WithError(err).Error("login lookup failed")
		return fail(c, "Login failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, "Invalid username or password")
	}

	token, _, err := utils.IssueToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Role, h.Cfg.TokenTTL)
	if err != nil {
		h.log.WithError(err).Error("issue token failed")
		return fail(c, "Login failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    toUserPart(u),
	})
}
