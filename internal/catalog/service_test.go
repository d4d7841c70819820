package catalog

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

type fakeSessions struct {
	sessions []store.Session
	err      error
}

func (f *fakeSessions) ListOpenSessions(ctx context.Context, today time.Time) ([]store.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	var open []store.Session
	for _, s := range f.sessions {
		if s.EndDate.Before(today) {
			continue
		}
		open = append(open, s)
	}
	return open, nil
}

func (f *fakeSessions) GetSession(ctx context.Context, id uuid.UUID) (store.Session, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return store.Session{}, store.ErrNotFound
}

type fakeKids struct {
	kids map[uuid.UUID]store.Kid
}

func (f *fakeKids) GetKid(ctx context.Context, accountID, kidID uuid.UUID) (store.Kid, error) {
	k, ok := f.kids[kidID]
	if !ok || k.AccountID != accountID {
		return store.Kid{}, store.ErrNotFound
	}
	return k, nil
}

type fakeConditions struct {
	conditions map[string]pricing.Condition
}

func (f *fakeConditions) GetCondition(ctx context.Context, id string) (pricing.Condition, error) {
	c, ok := f.conditions[id]
	if !ok {
		return pricing.Condition{}, store.ErrNotFound
	}
	return c, nil
}

func intPtr(v int64) *int64 { return &v }

func testSession(title string, capacity, registered int32) store.Session {
	return store.Session{
		ID:           uuid.New(),
		StageID:      uuid.New(),
		Title:        title,
		CenterID:     uuid.New(),
		CenterName:   "Ixelles",
		StartDate:    time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		Period:       "summer",
		Capacity:     capacity,
		Registered:   registered,
		AgeMin:       6,
		AgeMax:       8,
		PriceNormal:  10000,
		PriceReduced: intPtr(6000),
		PriceLocal:   intPtr(8000),
	}
}

func newTestService(sessions *fakeSessions, kids *fakeKids, conditions *fakeConditions) *Service {
	svc := &Service{
		Sessions:     sessions,
		Kids:         kids,
		Logger:       zerolog.Nop(),
		DefaultLimit: 20,
		MaxLimit:     100,
		Now: func() time.Time {
			return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
		},
	}
	if conditions != nil {
		svc.Resolver = &pricing.Resolver{Source: conditions}
	}
	return svc
}

func TestListSessionsSortsByRemainingSeats(t *testing.T) {
	nearlyFull := testSession("Cirque", 20, 19)
	halfFull := testSession("Poney", 20, 10)
	empty := testSession("Nature", 20, 0)
	sessions := &fakeSessions{sessions: []store.Session{empty, halfFull, nearlyFull}}
	svc := newTestService(sessions, &fakeKids{}, nil)

	items, err := svc.ListSessions(context.Background(), uuid.New(), ListParams{Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "Cirque", items[0].Title)
	require.Equal(t, "Poney", items[1].Title)
	require.Equal(t, "Nature", items[2].Title)
}

func TestListSessionsExcludesEndedSessions(t *testing.T) {
	// Now is June 1st: a session over in April disappears, one running into
	// June 5th stays joinable mid-session.
	ended := testSession("Paques", 20, 0)
	ended.StartDate = time.Date(2026, time.April, 6, 0, 0, 0, 0, time.UTC)
	ended.EndDate = time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	running := testSession("Printemps", 20, 0)
	running.StartDate = time.Date(2026, time.May, 25, 0, 0, 0, 0, time.UTC)
	running.EndDate = time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)
	upcoming := testSession("Cirque", 20, 0)
	sessions := &fakeSessions{sessions: []store.Session{ended, running, upcoming}}
	svc := newTestService(sessions, &fakeKids{}, nil)

	items, err := svc.ListSessions(context.Background(), uuid.New(), ListParams{Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Printemps", items[0].Title)
	require.Equal(t, "Cirque", items[1].Title)
}

func TestListSessionsHidesUnpublished(t *testing.T) {
	visible := testSession("Cirque", 20, 0)
	hidden := testSession("Poney", 20, 0)
	future := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	hidden.VisibleFrom = &future
	sessions := &fakeSessions{sessions: []store.Session{visible, hidden}}
	svc := newTestService(sessions, &fakeKids{}, nil)

	items, err := svc.ListSessions(context.Background(), uuid.New(), ListParams{Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Cirque", items[0].Title)
}

func TestListSessionsFiltersIneligibleKid(t *testing.T) {
	accountID := uuid.New()
	kidID := uuid.New()
	kids := &fakeKids{kids: map[uuid.UUID]store.Kid{kidID: {
		ID:        kidID,
		AccountID: accountID,
		BirthDate: time.Date(2022, time.January, 10, 0, 0, 0, 0, time.UTC),
	}}}
	sessions := &fakeSessions{sessions: []store.Session{testSession("Cirque", 20, 0)}}
	svc := newTestService(sessions, kids, nil)

	// 4 years old at session start, session wants 6 to 8.
	items, err := svc.ListSessions(context.Background(), accountID, ListParams{KidID: kidID, Limit: 20})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestListSessionsPricesForLocalKid(t *testing.T) {
	accountID := uuid.New()
	kidID := uuid.New()
	conditionID := uuid.New()
	kids := &fakeKids{kids: map[uuid.UUID]store.Kid{kidID: {
		ID:         kidID,
		AccountID:  accountID,
		BirthDate:  time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
		PostalCode: "1050",
	}}}
	sess := testSession("Cirque", 20, 0)
	sess.TariffConditionID = &conditionID
	sessions := &fakeSessions{sessions: []store.Session{sess}}
	conditions := &fakeConditions{conditions: map[string]pricing.Condition{
		conditionID.String(): {ID: conditionID.String(), PostalCodes: []string{"1050"}},
	}}
	svc := newTestService(sessions, kids, conditions)

	items, err := svc.ListSessions(context.Background(), accountID, ListParams{KidID: kidID, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].LocalEligible)
	require.Equal(t, pricing.TierLocal, items[0].Tier)
	require.Equal(t, pricing.Money(8000), items[0].Amount)
}

func TestListSessionsUnknownKidFailsWhole(t *testing.T) {
	sessions := &fakeSessions{sessions: []store.Session{testSession("Cirque", 20, 0)}}
	svc := newTestService(sessions, &fakeKids{}, nil)

	_, err := svc.ListSessions(context.Background(), uuid.New(), ListParams{KidID: uuid.New(), Limit: 20})
	require.Error(t, err)
}

func TestParseListParamsClampsLimit(t *testing.T) {
	svc := newTestService(&fakeSessions{}, &fakeKids{}, nil)
	params, err := svc.ParseListParams(url.Values{"limit": {"500"}})
	require.NoError(t, err)
	require.Equal(t, 100, params.Limit)
}

func TestGetSessionDetailNotFound(t *testing.T) {
	svc := newTestService(&fakeSessions{}, &fakeKids{}, nil)
	_, err := svc.GetSessionDetail(context.Background(), uuid.New(), uuid.New(), uuid.Nil, false)
	require.Error(t, err)
}
