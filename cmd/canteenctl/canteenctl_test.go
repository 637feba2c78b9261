package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteen-app/config"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/session"
)

func quietApp(t *testing.T, url string) *app {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return newApp(context.Background(), &config.ClientConfig{
		BackendURL:    url,
		AnonKey:       "anon",
		StaffEmail:    "ravi@canteen.in",
		StaffPassword: "kitchen99",
		SessionDir:    t.TempDir(),
	}, log)
}

func writeData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": code < 300, "message": http.StatusText(code), "data": data})
}

type fakeBackend struct {
	logins atomic.Int32
	orders []models.Transaction
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ping":
		writeData(w, http.StatusOK, nil)
	case r.URL.Path == "/api/auth/login":
		f.logins.Add(1)
		writeData(w, http.StatusOK, map[string]any{
			"token":   "tok-1",
			"session": session.Session{ID: 1, Email: "ravi@canteen.in", Role: "staff"},
		})
	case r.URL.Path == "/api/auth/session":
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeData(w, http.StatusUnauthorized, nil)
			return
		}
		writeData(w, http.StatusOK, nil)
	case r.URL.Path == "/api/staff/transactions":
		writeData(w, http.StatusOK, f.orders)
	case r.URL.Path == "/api/staff/dashboard/gauge":
		writeData(w, http.StatusOK, []map[string]any{{"period": "day", "orders": 4, "target": 10, "percentage": 40}})
	default:
		writeData(w, http.StatusNotFound, nil)
	}
}

func TestPingConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := quietApp(t, url).ping()
	assert.ErrorIs(t, err, errConnection)
}

func TestStaffSessionIsPersistedAndReused(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	a := quietApp(t, srv.URL)
	s, err := a.staffSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.AccessToken)

	// A fresh process reads the stored session instead of logging in again.
	b := newApp(context.Background(), a.cfg, a.log)
	s, err = b.staffSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ravi@canteen.in", s.Email)
	assert.Equal(t, int32(1), backend.logins.Load())

	require.NoError(t, (&logoutCmd{}).Run(b))
	_, err = session.NewFileStore(a.cfg.SessionDir, "").Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStaffSessionNeedsCredentials(t *testing.T) {
	srv := httptest.NewServer(&fakeBackend{})
	defer srv.Close()

	a := quietApp(t, srv.URL)
	a.cfg.StaffPassword = ""
	_, err := a.staffSession(context.Background())
	assert.ErrorIs(t, err, errMissingConfig)
}

func TestFixDatabaseRequiresServiceKey(t *testing.T) {
	err := (&fixDatabaseCmd{}).Run(quietApp(t, "http://127.0.0.1:1"))
	assert.ErrorIs(t, err, errMissingConfig)
}

func TestOrderSystemChecks(t *testing.T) {
	backend := &fakeBackend{orders: []models.Transaction{
		{ID: 1, OrderNumber: "ORD-1", OrderStatus: models.OrderCooking, PaymentStatus: models.PaymentSuccess,
			OrderItems: []models.OrderItem{{Name: "Tea", Quantity: 1, Price: 10}}},
		{ID: 2, OrderNumber: "ORD-2", OrderStatus: models.OrderDelivered, PaymentStatus: models.PaymentSuccess,
			Items: []byte(`[{"name":"Dosa","quantity":1,"price":60}]`)},
		{ID: 3, OrderNumber: "ORD-3", OrderStatus: "Lost", PaymentStatus: models.PaymentSuccess,
			OrderItems: []models.OrderItem{{Name: "Tea", Quantity: 1, Price: 10}}},
		{ID: 4, OrderNumber: "ORD-4", OrderStatus: models.OrderPending, PaymentStatus: models.PaymentPending},
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	a := quietApp(t, srv.URL)
	require.NoError(t, (&testOrderSystemCmd{Limit: 20}).Run(a))
	// ping, list, ORD-1, ORD-2, gauge
	assert.Equal(t, 5, a.passed)
	// unknown status, missing items
	assert.Equal(t, 2, a.failed)
}

func TestWebsocketURL(t *testing.T) {
	a := quietApp(t, "https://canteen.example.com/base")
	u, err := a.websocketURL("tok", "transactions", "UPDATE")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "wss://canteen.example.com/base/realtime?"))
	assert.Contains(t, u, "token=tok")
	assert.Contains(t, u, "event=UPDATE")
	assert.Contains(t, u, "apikey=anon")
}
