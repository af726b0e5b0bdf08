package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, input ports.RegisterInput) (*domain.Account, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.Account, error)
}

func (s *stubAuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.Account, error) {
	return s.registerFn(ctx, input)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	return s.loginFn(ctx, email, password)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
			if in.Name != "Alice" || in.Email != "a@example.com" || in.Password != "secret123" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Account{
				ID:           "1",
				Name:         in.Name,
				Email:        in.Email,
				PasswordHash: "hash",
				Roles:        []domain.Role{{ID: "r3", Name: domain.RoleUser}},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON(e, "/auth/register", `{"name":"Alice","email":"a@example.com","password":"secret123"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["name"] != "Alice" || user["email"] != "a@example.com" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestAuthHandler_Register_AccountExists(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
			return nil, domain.ErrAccountExists
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON(e, "/auth/register", `{"name":"Bob","email":"bob@example.com","password":"secret123"}`)
	_ = handler.Register(c)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for name, body := range map[string]string{
		"not json":       "not-json",
		"missing email":  `{"name":"Bob","password":"secret123"}`,
		"short password": `{"name":"Bob","email":"bob@example.com","password":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, rec := postJSON(newTestEcho(), "/auth/register", body)
			_ = handler.Register(c)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.Account, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.Account{ID: "1", Name: "Alice", Email: email}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON(e, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["id"] != "1" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Login_Unauthorized(t *testing.T) {
	for name, failure := range map[string]error{
		"wrong password": domain.ErrInvalidCredentials,
		"unknown email":  domain.ErrAccountNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			stub := &stubAuthService{
				loginFn: func(ctx context.Context, email, password string) (string, *domain.Account, error) {
					return "", nil, failure
				},
			}
			c, rec := postJSON(newTestEcho(), "/auth/login", `{"email":"alice@example.com","password":"bad"}`)
			_ = NewAuthHandler(stub).Login(c)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "invalid credentials") {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.Account, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON(e, "/auth/login", "{")
	_ = handler.Login(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
