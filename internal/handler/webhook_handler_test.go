package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/dto"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/service"
)

type stubWebhookProcessor struct {
	handle func(ctx context.Context, payload dto.EnrichmentWebhook) (service.WebhookResult, error)
}

func (s *stubWebhookProcessor) HandleWebhook(ctx context.Context, payload dto.EnrichmentWebhook) (service.WebhookResult, error) {
	return s.handle(ctx, payload)
}

func decodeWebhookResponse(t *testing.T, raw []byte) dto.WebhookResponse {
	t.Helper()
	var resp dto.WebhookResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestWebhookHandler_Receive(t *testing.T) {
	t.Run("completion", func(t *testing.T) {
		payload := dto.EnrichmentWebhook{
			Success: true,
			Source:  "linkedin",
			Data:    &dto.EnrichedData{Email: "ada@acme.io", OrganizationID: testOrgID.String(), EnrichmentConfidence: 0.9},
		}
		c, rec := newContext(http.MethodPost, "/webhooks/enrichment", jsonBody(t, payload))

		contactID, companyID := uuid.New(), uuid.New()
		handler := NewWebhookHandler(&stubWebhookProcessor{
			handle: func(ctx context.Context, got dto.EnrichmentWebhook) (service.WebhookResult, error) {
				if got.Data == nil || got.Data.Email != "ada@acme.io" {
					t.Fatalf("unexpected payload %+v", got)
				}
				return service.WebhookResult{Success: true, Completion: &service.CompletionResult{
					ContactID:          contactID,
					ParticipantUpdated: true,
					CompanyCreated:     true,
					CompanyID:          &companyID,
					HistoryUpdated:     true,
				}}, nil
			},
		})

		_ = handler.Receive(c)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeWebhookResponse(t, rec.Body.Bytes())
		if !resp.Success || resp.ContactID == nil || *resp.ContactID != contactID.String() {
			t.Fatalf("unexpected response %+v", resp)
		}
		if !resp.ParticipantUpdated || !resp.CompanyCreated || !resp.HistoryUpdated {
			t.Fatalf("expected every step reported, got %+v", resp)
		}
	})

	t.Run("failure callback", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/webhooks/enrichment", jsonBody(t, dto.EnrichmentWebhook{Success: false, Error: "profile not found"}))

		handler := NewWebhookHandler(&stubWebhookProcessor{
			handle: func(ctx context.Context, got dto.EnrichmentWebhook) (service.WebhookResult, error) {
				return service.WebhookResult{Failure: &service.FailureResult{HistoryUpdated: true, Error: got.Error}}, nil
			},
		})

		_ = handler.Receive(c)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeWebhookResponse(t, rec.Body.Bytes())
		if resp.Success || !resp.HistoryUpdated || resp.Error != "profile not found" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("invalid result", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/webhooks/enrichment", jsonBody(t, dto.EnrichmentWebhook{Success: true}))

		handler := NewWebhookHandler(&stubWebhookProcessor{
			handle: func(ctx context.Context, got dto.EnrichmentWebhook) (service.WebhookResult, error) {
				return service.WebhookResult{}, &service.ValidationError{Field: "data", Message: "enrichment data is required"}
			},
		})

		_ = handler.Receive(c)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		c, rec := newContext(http.MethodPost, "/webhooks/enrichment", jsonBody(t, dto.EnrichmentWebhook{Success: true}))

		handler := NewWebhookHandler(&stubWebhookProcessor{
			handle: func(ctx context.Context, got dto.EnrichmentWebhook) (service.WebhookResult, error) {
				return service.WebhookResult{}, errors.New("upsert contact: connection reset")
			},
		})

		_ = handler.Receive(c)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestWebhookHandler_Health(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/webhooks/enrichment", nil)

	_ = NewWebhookHandler(nil).Health(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
