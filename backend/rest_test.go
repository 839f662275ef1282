package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"aftercollage_app_go/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSupabase serves the handful of PostgREST and GoTrue endpoints RestBackend uses
type fakeSupabase struct {
	mu          sync.Mutex
	rows        map[string][]map[string]interface{}
	lastAuth    string
	lastQuery   string
	userToken   string
	failInserts bool
}

func newFakeSupabase(t *testing.T) (*fakeSupabase, *httptest.Server) {
	f := &fakeSupabase{rows: map[string][]map[string]interface{}{}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("provider-secret"))
	require.NoError(t, err)
	f.userToken = signed

	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSupabase) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *fakeSupabase) query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *fakeSupabase) row(table string, i int) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[table][i]
}

func (f *fakeSupabase) setFailInserts(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failInserts = v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeSupabase) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.Header.Get("Authorization")
	f.lastQuery = r.URL.RawQuery

	if r.Header.Get("apikey") != "anon-key" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		return
	}

	switch {
	case r.URL.Path == "/auth/v1/token":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "correct" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": f.userToken,
			"expires_in":   3600,
			"expires_at":   time.Now().Add(time.Hour).Unix(),
			"user":         map[string]string{"id": "user-1", "email": body["email"]},
		})
	case r.URL.Path == "/auth/v1/user":
		if r.Header.Get("Authorization") != "Bearer "+f.userToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "user-1", "email": "admin@example.com"})
	case r.URL.Path == "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		table := r.URL.Path[len("/rest/v1/"):]
		switch r.Method {
		case http.MethodPost:
			if f.failInserts {
				writeJSON(w, http.StatusForbidden, map[string]string{"message": "new row violates row-level security policy"})
				return
			}
			var row map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&row)
			row["id"] = "generated-id"
			row["status"] = models.StatusNew
			row["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
			f.rows[table] = append(f.rows[table], row)
			writeJSON(w, http.StatusCreated, []map[string]interface{}{row})
		case http.MethodGet:
			writeJSON(w, http.StatusOK, f.rows[table])
		case http.MethodPatch:
			var patch map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&patch)
			id := r.URL.Query().Get("id")[len("eq."):]
			updated := []map[string]interface{}{}
			for _, row := range f.rows[table] {
				if row["id"] == id {
					for k, v := range patch {
						row[k] = v
					}
					updated = append(updated, row)
				}
			}
			writeJSON(w, http.StatusOK, updated)
		}
	}
}

func TestRestBackendStore(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	b := NewRestBackend(srv.URL+"/", "anon-key")
	ctx := context.Background()

	t.Run("insert strips server columns and returns id", func(t *testing.T) {
		phone := "9876543210"
		id, err := b.Insert(ctx, models.TableContactSubmissions, &models.ContactSubmission{
			Name: "Ravi", Email: "ravi@example.com", Phone: &phone, Message: "Hello there team",
		})
		require.NoError(t, err)
		assert.Equal(t, "generated-id", id)
		assert.Equal(t, "Bearer anon-key", fake.auth())

		stored := fake.row(models.TableContactSubmissions, 0)
		assert.Equal(t, "9876543210", stored["phone"])
		assert.Equal(t, "Ravi", stored["name"])
	})

	t.Run("select forwards order, filter and user token", func(t *testing.T) {
		var rows []models.ContactSubmission
		err := b.Select(WithAccessToken(ctx, "user-token"), models.TableContactSubmissions, &rows, Query{
			Filter: map[string]interface{}{"status": "new"},
			Limit:  5,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "generated-id", rows[0].ID)
		assert.Equal(t, models.StatusNew, rows[0].Status)
		assert.Equal(t, "Bearer user-token", fake.auth())
		assert.Contains(t, fake.query(), "order=created_at.desc")
		assert.Contains(t, fake.query(), "status=eq.new")
		assert.Contains(t, fake.query(), "limit=5")
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, b.Update(ctx, models.TableContactSubmissions, "generated-id", map[string]interface{}{"status": models.StatusClosed}))
		assert.Equal(t, models.StatusClosed, fake.row(models.TableContactSubmissions, 0)["status"])

		err := b.Update(ctx, models.TableContactSubmissions, "missing", map[string]interface{}{"status": models.StatusClosed})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insert rejected", func(t *testing.T) {
		fake.setFailInserts(true)
		defer fake.setFailInserts(false)

		_, err := b.Insert(ctx, models.TableContactSubmissions, &models.ContactSubmission{Name: "x"})
		require.Error(t, err)
		var restErr *RestError
		require.ErrorAs(t, err, &restErr)
		assert.Equal(t, http.StatusForbidden, restErr.Status)
		assert.Contains(t, restErr.Message, "row-level security")
	})
}

func TestRestBackendIdentity(t *testing.T) {
	fake, srv := newFakeSupabase(t)
	b := NewRestBackend(srv.URL, "anon-key")
	ctx := context.Background()

	var events []AuthEvent
	b.OnAuthStateChange(func(ch AuthChange) { events = append(events, ch.Event) })

	_, err := b.SignIn(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := b.SignIn(ctx, "admin@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, fake.userToken, session.Token)

	got, err := b.GetSession(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin@example.com", got.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)

	got, err = b.GetSession(ctx, "stale-token")
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.SignOut(ctx, session.Token))
	assert.Equal(t, []AuthEvent{EventSignedIn, EventSignedOut}, events)
}

func TestInsertPayload(t *testing.T) {
	payload, err := insertPayload(&models.PartnerSubmission{FullName: "Meera", Consent: true})
	require.NoError(t, err)

	assert.NotContains(t, payload, "id")
	assert.NotContains(t, payload, "created_at")
	assert.NotContains(t, payload, "status")
	assert.Equal(t, "Meera", payload["full_name"])
	assert.Nil(t, payload["organization_name"])
	assert.Equal(t, true, payload["consent"])
}
