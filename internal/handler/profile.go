package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/middleware"
	"github.com/iliyamo/park-ticketing/internal/upload"
)

// ProfileHandler lets a user manage their own profile photo, which is
// required before booking child tickets for adult-only events.
type ProfileHandler struct {
	Users  UserStore
	Photos PhotoSaver
	log    *logrus.Entry
}

func NewProfileHandler(users UserStore, photos PhotoSaver) *ProfileHandler {
	return &ProfileHandler{Users: users, Photos: photos, log: logrus.WithField("component", "profile")}
}

// photoMessage is the client facing reason a photo was refused.
func photoMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		return "Only JPG, JPEG, PNG and GIF files are allowed"
	case errors.Is(err, upload.ErrNotImage):
		return "Uploaded file is not a valid image"
	case errors.Is(err, upload.ErrTooLarge):
		return "Photo is too large"
	}
	return "Failed to save photo"
}

// UploadPhoto replaces the caller's profile photo.
func (h *ProfileHandler) UploadPhoto(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Unauthorized. Please login."})
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return fail(c, "Photo is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "Failed to save photo")
	}
	defer f.Close()

	path, err := h.Photos.Save(f, fh.Filename)
	if err != nil {
		h.log.WithError(err).WithField("user_id", uid).Warn("photo rejected")
		return fail(c, photoMessage(err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	// Read the old path first so it can be removed once the new one is saved.
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		_ = h.Photos.Remove(path)
		h.log.WithError(err).WithField("user_id", uid).Error("load user failed")
		return fail(c, "Failed to save photo")
	}
	if err := h.Users.SetPhoto(ctx, uid, path); err != nil {
		_ = h.Photos.Remove(path)
		h.log.WithError(err).WithField("user_id", uid).Error("set photo failed")
		return fail(c, "Failed to save photo")
	}
	if u.HasPhoto() && *u.PhotoPath != path {
		if err := h.Photos.Remove(*u.PhotoPath); err != nil {
			h.log.WithError(err).Warn("remove old photo failed")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Photo updated", "photo_path": path})
}
