package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestBackend talks to a hosted Supabase project: PostgREST under /rest/v1 for rows and
// GoTrue under /auth/v1 for identities. Calls run with the signed-in user's access token
// when the context carries one, otherwise with the anon key.
type RestBackend struct {
	client    *resty.Client
	anonKey   string
	listeners authListeners
}

// RestError is a non-2xx response from the hosted service
type RestError struct {
	Status  int
	Message string
}

func (e *RestError) Error() string {
	return fmt.Sprintf("supabase: %d %s", e.Status, e.Message)
}

func NewRestBackend(baseURL, anonKey string) *RestBackend {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("apikey", anonKey).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)

	return &RestBackend{client: client, anonKey: anonKey}
}

func (b *RestBackend) request(ctx context.Context) *resty.Request {
	token := accessTokenFrom(ctx)
	if token == "" {
		token = b.anonKey
	}
	return b.client.R().SetContext(ctx).SetAuthToken(token)
}

func (b *RestBackend) Insert(ctx context.Context, collection string, row interface{}) (string, error) {
	payload, err := insertPayload(row)
	if err != nil {
		return "", err
	}

	var created []map[string]interface{}
	resp, err := b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(payload).
		SetResult(&created).
		Post("/rest/v1/" + collection)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("insert into %s: %w", collection, restError(resp))
	}
	if len(created) == 0 {
		return "", nil
	}
	id, _ := created[0]["id"].(string)
	return id, nil
}

func (b *RestBackend) Select(ctx context.Context, collection string, dest interface{}, q Query) error {
	order := "created_at.desc"
	if q.Ascending {
		order = "created_at.asc"
	}

	req := b.request(ctx).
		SetQueryParam("select", "*").
		SetResult(dest)
	if !q.Unordered {
		req.SetQueryParam("order", order)
	}
	for column, value := range q.Filter {
		req.SetQueryParam(column, fmt.Sprintf("eq.%v", value))
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", q.Limit))
	}

	resp, err := req.Get("/rest/v1/" + collection)
	if err != nil {
		return fmt.Errorf("select from %s: %w", collection, err)
	}
	if resp.IsError() {
		return fmt.Errorf("select from %s: %w", collection, restError(resp))
	}
	return nil
}

func (b *RestBackend) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	var updated []map[string]interface{}
	resp, err := b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetBody(patch).
		SetResult(&updated).
		Patch("/rest/v1/" + collection)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("update %s/%s: %w", collection, id, restError(resp))
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresAt   int64    `json:"expires_at"`
	ExpiresIn   int64    `json:"expires_in"`
	User        authUser `json:"user"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (b *RestBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out tokenResponse
	resp, err := b.client.R().SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": strings.TrimSpace(email), "password": password}).
		SetResult(&out).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sign in: %w", restError(resp))
	}

	expiresAt := time.Unix(out.ExpiresAt, 0)
	if out.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	session := &Session{
		Token:     out.AccessToken,
		UserID:    out.User.ID,
		Email:     out.User.Email,
		ExpiresAt: expiresAt,
	}
	b.listeners.emit(AuthChange{Event: EventSignedIn, Token: session.Token, Session: session})
	return session, nil
}

func (b *RestBackend) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	var user authUser
	resp, err := b.client.R().SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get session: %w", restError(resp))
	}
	if user.ID == "" {
		return nil, nil
	}

	return &Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: tokenExpiry(token),
	}, nil
}

func (b *RestBackend) OnAuthStateChange(fn func(AuthChange)) func() {
	return b.listeners.subscribe(fn)
}

func (b *RestBackend) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	resp, err := b.client.R().SetContext(ctx).
		SetAuthToken(token).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	// An already revoked token is as good as signed out
	if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized && resp.StatusCode() != http.StatusForbidden {
		return fmt.Errorf("sign out: %w", restError(resp))
	}
	b.listeners.emit(AuthChange{Event: EventSignedOut, Token: token})
	return nil
}

// insertPayload drops the columns the service assigns itself
func insertPayload(row interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	payload := map[string]interface{}{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}

	delete(payload, "created_at")
	if id, _ := payload["id"].(string); id == "" {
		delete(payload, "id")
	}
	if status, _ := payload["status"].(string); status == "" {
		delete(payload, "status")
	}
	return payload, nil
}

func restError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error_description"`
	}
	msg := strings.TrimSpace(resp.String())
	if json.Unmarshal(resp.Body(), &body) == nil {
		for _, m := range []string{body.Message, body.Msg, body.Error} {
			if m != "" {
				msg = m
				break
			}
		}
	}
	return &RestError{Status: resp.StatusCode(), Message: msg}
}
