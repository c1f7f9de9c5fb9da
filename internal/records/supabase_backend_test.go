package records

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/postgrest-go"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

type fakePostgREST struct {
	mu       sync.Mutex
	rows     []map[string]any
	requests []*http.Request
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var row map[string]any
		_ = json.Unmarshal(body, &row)
		row["created_at"] = "2030-01-01T10:00:00.000001+00:00"
		row["updated_at"] = "2030-01-01T10:00:00.000001+00:00"
		f.rows = append(f.rows, row)
		_ = json.NewEncoder(w).Encode([]map[string]any{row})
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.rows)
	case http.MethodPatch, http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		for i, row := range f.rows {
			if row["id"] != id {
				continue
			}
			if r.Method == http.MethodPatch {
				body, _ := io.ReadAll(r.Body)
				var patch map[string]any
				_ = json.Unmarshal(body, &patch)
				for k, v := range patch {
					row[k] = v
				}
			} else {
				f.rows = append(f.rows[:i], f.rows[i+1:]...)
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{row})
			return
		}
		_, _ = w.Write([]byte("[]"))
	}
}

func newSupabaseTestBackend(t *testing.T) (*SupabaseBackend, *fakePostgREST, *RedisFeed) {
	t.Helper()
	fake := &fakePostgREST{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logging.New("error")
	feed := NewRedisFeed(client, logger)
	rest := postgrest.NewClient(srv.URL, "public", map[string]string{"apikey": "anon"})
	return NewSupabaseBackend(rest, feed, logger), fake, feed
}

func TestSupabaseBackendLifecycle(t *testing.T) {
	backend, _, _ := newSupabaseTestBackend(t)
	ctx := context.Background()

	events := make(chan ChangeEvent, 4)
	sub, err := backend.Subscribe(ctx, TableAppointments, func(evt ChangeEvent) { events <- evt })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	gw := NewGateway(backend, logging.New("error"))
	created := gw.CreateAppointment(ctx, validAppointment())
	require.True(t, created.Success, created.Error)
	assert.Nil(t, created.Data.PatientName)
	assert.Equal(t, StatusPending, created.Data.Status)
	assert.Equal(t, EventInsert, waitEvent(t, events).Type)

	updated := gw.UpdateAppointmentStatus(ctx, created.Data.ID, StatusConfirmed)
	require.True(t, updated.Success, updated.Error)
	assert.Equal(t, StatusConfirmed, updated.Data.Status)
	assert.Equal(t, EventUpdate, waitEvent(t, events).Type)

	require.True(t, gw.DeleteAppointment(ctx, created.Data.ID).Success)
	assert.Equal(t, EventDelete, waitEvent(t, events).Type)

	missing := gw.DeleteAppointment(ctx, created.Data.ID)
	require.False(t, missing.Success)
	assert.Equal(t, "appointment not found", missing.Error)
}

func TestSupabaseBackendSelectBuildsFilters(t *testing.T) {
	backend, fake, _ := newSupabaseTestBackend(t)
	ctx := context.Background()

	for _, d := range []string{"2030-01-05", "2030-02-05"} {
		row := appointmentRow(validAppointment(), StatusPending)
		row["preferred_date"] = d
		_, err := backend.Insert(ctx, TableAppointments, row)
		require.NoError(t, err)
	}

	rows, err := backend.Select(ctx, TableAppointments, Query{
		Filters: []Filter{
			{Column: "preferred_date", Op: OpGte, Value: "2030-01-01"},
			{Column: "preferred_date", Op: OpLte, Value: "2030-01-31"},
		},
		Order: &Order{Column: "preferred_date", Ascending: true},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1, "second filter on the same column applies locally")
	assert.Equal(t, "2030-01-05", rows[0]["preferred_date"])

	fake.mu.Lock()
	last := fake.requests[len(fake.requests)-1]
	fake.mu.Unlock()
	assert.Equal(t, "/appointments", last.URL.Path)
	assert.Equal(t, "gte.2030-01-01", last.URL.Query().Get("preferred_date"))
	assert.True(t, strings.HasPrefix(last.URL.Query().Get("order"), "preferred_date.asc"))
}

func TestSupabaseBackendRejectsUnknownColumn(t *testing.T) {
	backend, _, _ := newSupabaseTestBackend(t)
	_, err := backend.Insert(context.Background(), TableContactMessages, Row{"password": "x"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
