package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/database/testhelper"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/entity"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/repository"
)

func newOrg(t *testing.T, users *repository.PGXUsersRepository) uuid.UUID {
	t.Helper()
	id, err := users.CreateOrganization(context.Background(), "org-"+uuid.NewString())
	require.NoError(t, err)
	return id
}

func TestIntegration_ConcurrentEnrichmentCreatesOneContact(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()
	contacts := repository.NewPGXContactsRepository(pool)
	orgID := newOrg(t, repository.NewPGXUsersRepository(pool))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[uuid.UUID]int{}
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := contacts.UpsertEnriched(ctx, &entity.Contact{
				OrganizationID: orgID,
				Email:          "X@Y.com",
				FullName:       fmt.Sprintf("Writer %d", i),
				Score:          80,
				AIInsights:     &entity.AIInsights{Version: entity.AIInsightsVersion, Source: entity.SourceApollo, ConfidenceScore: 0.8},
			})
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			ids[res.ID]++
			if res.Created {
				created++
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)

	c, err := contacts.FindByEmail(ctx, orgID, "x@y.com")
	require.NoError(t, err)
	assert.True(t, c.Enriched())
	assert.Equal(t, "x@y.com", c.Email)
}

func TestIntegration_ReimportKeepsLinkAndDeleteResets(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()
	users := repository.NewPGXUsersRepository(pool)
	contacts := repository.NewPGXContactsRepository(pool)
	participants := repository.NewPGXParticipantsRepository(pool)
	orgID := newOrg(t, users)

	created, err := contacts.UpsertEnriched(ctx, &entity.Contact{OrganizationID: orgID, Email: "ana@acme.com", FullName: "Ana Lopez"})
	require.NoError(t, err)

	confidence := 1.0
	source := entity.SourceAuto
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	linked := entity.Participant{
		MeetingID: "m-1", MeetingTitle: "Weekly", MeetingDateTime: &at, Email: "ana@acme.com",
		DisplayName: "Ana", ResponseStatus: "accepted", Platform: "google-meet",
		ContactID: &created.ID, EnrichmentStatus: entity.ParticipantMatched,
		AutoMatchConfidence: &confidence, EnrichmentSource: &source,
	}
	first, err := participants.UpsertBatch(ctx, orgID, nil, []repository.ParticipantUpsert{{Participant: linked, RecordMatch: true}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 1, first.HistoryRows)

	unlinked := linked
	unlinked.ContactID = nil
	unlinked.EnrichmentStatus = entity.ParticipantUnknown
	unlinked.AutoMatchConfidence = nil
	unlinked.EnrichmentSource = nil
	unlinked.ResponseStatus = "declined"
	second, err := participants.UpsertBatch(ctx, orgID, nil, []repository.ParticipantUpsert{{Participant: unlinked}})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Updated)

	p, err := participants.FindByID(ctx, orgID, first.Participants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ParticipantMatched, p.EnrichmentStatus)
	require.NotNil(t, p.ContactID)
	assert.Equal(t, created.ID, *p.ContactID)
	assert.Equal(t, "declined", p.ResponseStatus)

	reset, err := contacts.Delete(ctx, orgID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	p, err = participants.FindByID(ctx, orgID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ParticipantPending, p.EnrichmentStatus)
	assert.Nil(t, p.ContactID)
}

func TestIntegration_HistoryFinishesOnce(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()
	history := repository.NewPGXHistoryRepository(pool)
	orgID := newOrg(t, repository.NewPGXUsersRepository(pool))

	entry := &entity.EnrichmentHistoryEntry{
		OrganizationID:   orgID,
		RequestEmail:     "x@y.com",
		EnrichmentType:   entity.EnrichmentAPILookup,
		EnrichmentSource: entity.SourceClearbit,
	}
	require.NoError(t, history.Create(ctx, entry))

	require.NoError(t, history.Finish(ctx, orgID, entry.ID, repository.HistoryCompletion{Status: entity.EnrichmentSuccess, CostCents: 100}))
	err := history.Finish(ctx, orgID, entry.ID, repository.HistoryCompletion{Status: entity.EnrichmentFailed})
	assert.True(t, errors.Is(err, repository.ErrHistoryFinished))

	stored, err := history.FindByID(ctx, orgID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EnrichmentSuccess, stored.Status)
	assert.Equal(t, 100, stored.CostCents)
	assert.NotNil(t, stored.CompletedAt)
}
