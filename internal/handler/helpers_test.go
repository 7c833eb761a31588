package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/auth"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/middleware"
)

var (
	testOrgID  = uuid.MustParse("5f0c6a53-3f1e-4a55-9c1a-0d2f3f1b7e01")
	testUserID = uuid.MustParse("8d7e0b4c-2a9f-4e15-8f4f-6a1c9b0d2e02")
)

func testIdentity(role string) auth.Identity {
	return auth.Identity{OrganizationID: testOrgID, UserID: testUserID, Email: "rep@seller.io", Role: role}
}

func newContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newAuthedContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newContext(method, target, body)
	c.Set(middleware.ContextKeyIdentity, testIdentity(auth.RoleMember))
	return c, rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) APIResponse {
	t.Helper()
	payload := APIResponse{Data: data}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}
