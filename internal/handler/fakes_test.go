package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-ticketing/internal/middleware"
	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/service"
)

// --- in-memory UserStore ---

type memUsers struct {
	byID     map[uint64]*model.User
	bookings map[uint64]int64
	nextID   uint64
	failWith error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]*model.User{}, bookings: map[uint64]int64{}, nextID: 1}
}

func (m *memUsers) add(u model.User) uint64 {
	u.ID = m.nextID
	m.nextID++
	m.byID[u.ID] = &u
	return u.ID
}

func (m *memUsers) FindByUsernameOrEmail(_ context.Context, login string) (model.User, error) {
	if m.failWith != nil {
		return model.User{}, m.failWith
	}
	for _, u := range m.byID {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if u, ok := m.byID[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, u *model.User) (uint64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	if taken, _ := m.UsernameTaken(ctx, u.Username, 0); taken {
		return 0, repository.ErrUsernameExists
	}
	if taken, _ := m.EmailTaken(ctx, u.Email, 0); taken {
		return 0, repository.ErrEmailExists
	}
	return m.add(*u), nil
}

func (m *memUsers) Update(_ context.Context, id uint64, p model.UserPatch) (int64, error) {
	if p.Empty() {
		return 0, repository.ErrNoFields
	}
	u, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Username, p.Username)
	set(&u.Email, p.Email)
	set(&u.FullName, p.FullName)
	set(&u.Phone, p.Phone)
	set(&u.Address, p.Address)
	set(&u.Role, p.Role)
	set(&u.PasswordHash, p.PasswordHash)
	return 1, nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) (int64, error) {
	if _, ok := m.byID[id]; !ok {
		return 0, repository.ErrUserNotFound
	}
	delete(m.byID, id)
	n := m.bookings[id]
	delete(m.bookings, id)
	return n, nil
}

func (m *memUsers) ListWithStats(context.Context) ([]repository.UserWithStats, error) {
	out := []repository.UserWithStats{}
	for id := uint64(1); id < m.nextID; id++ {
		if u, ok := m.byID[id]; ok {
			out = append(out, repository.UserWithStats{User: *u, TotalBookings: int(m.bookings[id])})
		}
	}
	return out, nil
}

func (m *memUsers) UsernameTaken(_ context.Context, username string, excludeID uint64) (bool, error) {
	for _, u := range m.byID {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) EmailTaken(_ context.Context, email string, excludeID uint64) (bool, error) {
	for _, u := range m.byID {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) SetPhoto(_ context.Context, id uint64, path string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PhotoPath = &path
	return nil
}

// --- PhotoSaver ---

type fakePhotos struct {
	saveErr error
	saved   []string
	removed []string
}

func (f *fakePhotos) Save(src io.Reader, filename string) (string, error) {
	if _, err := io.ReadAll(src); err != nil {
		return "", err
	}
	if f.saveErr != nil {
		return "", f.saveErr
	}
	p := "uploads/" + filename
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakePhotos) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

// --- events, bookings ---

type fakeEvents struct {
	list []repository.EventSummary
	day  time.Time
}

func (f *fakeEvents) ListUpcoming(_ context.Context, day time.Time) ([]repository.EventSummary, error) {
	f.day = day
	return f.list, nil
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (repository.EventSummary, error) {
	for _, e := range f.list {
		if e.ID == id {
			return e, nil
		}
	}
	return repository.EventSummary{}, repository.ErrEventNotFound
}

type fakeBooker struct {
	got service.BookingRequest
	res service.BookingResult
	err error
}

func (f *fakeBooker) AttemptBooking(_ context.Context, req service.BookingRequest) (service.BookingResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeLister struct {
	rows []repository.BookingDetail
	err  error
}

func (f *fakeLister) ListByUser(context.Context, uint64) ([]repository.BookingDetail, error) {
	return f.rows, f.err
}

type countingInvalidator struct{ calls int }

func (ci *countingInvalidator) Invalidate(context.Context) error {
	ci.calls++
	return errors.New("redis down")
}

// --- helpers ---

// call runs h against a JSON request, optionally as user uid.
func call(t *testing.T, h echo.HandlerFunc, method, body string, uid uint64) map[string]any {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set(middleware.CtxUserID, uid)
	}
	require.NoError(t, h(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
