package kids

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/media"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

type fakeQuerier struct {
	kids       map[uuid.UUID]store.KidFull
	photoPaths map[uuid.UUID]string
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{kids: map[uuid.UUID]store.KidFull{}, photoPaths: map[uuid.UUID]string{}}
}

func (f *fakeQuerier) ListKidsByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Kid, error) {
	var rows []store.Kid
	for _, full := range f.kids {
		if full.Kid.AccountID == accountID {
			rows = append(rows, full.Kid)
		}
	}
	return rows, nil
}

func (f *fakeQuerier) GetKidFull(ctx context.Context, accountID, kidID uuid.UUID) (store.KidFull, error) {
	full, ok := f.kids[kidID]
	if !ok || full.Kid.AccountID != accountID {
		return store.KidFull{}, store.ErrNotFound
	}
	return full, nil
}

func (f *fakeQuerier) UpdateKidPhoto(ctx context.Context, accountID, kidID uuid.UUID, path string) error {
	if _, ok := f.kids[kidID]; !ok {
		return store.ErrNotFound
	}
	f.photoPaths[kidID] = path
	return nil
}

func TestListComputesAges(t *testing.T) {
	querier := newFakeQuerier()
	accountID := uuid.New()
	kidID := uuid.New()
	querier.kids[kidID] = store.KidFull{Kid: store.Kid{
		ID:        kidID,
		AccountID: accountID,
		FirstName: "Lina",
		BirthDate: time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
	}}
	svc := &Service{
		Store:  querier,
		Logger: zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		},
	}

	summaries, err := svc.List(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 7.3, summaries[0].Age)
}

func TestListSurvivesSignerOutage(t *testing.T) {
	querier := newFakeQuerier()
	accountID := uuid.New()
	kidID := uuid.New()
	path := "kids/photo.jpg"
	querier.kids[kidID] = store.KidFull{Kid: store.Kid{
		ID:        kidID,
		AccountID: accountID,
		BirthDate: time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
		PhotoPath: &path,
	}}
	svc := &Service{
		Store:  querier,
		Logger: zerolog.Nop(),
		Media: &media.MockProvider{
			SignDownloadFunc: func(ctx context.Context, path string) (media.SignedURL, error) {
				return media.SignedURL{}, errors.New("signer down")
			},
		},
	}

	summaries, err := svc.List(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Empty(t, summaries[0].PhotoURL)
}

func TestPhotoUploadURLRecordsPath(t *testing.T) {
	querier := newFakeQuerier()
	accountID := uuid.New()
	kidID := uuid.New()
	querier.kids[kidID] = store.KidFull{Kid: store.Kid{ID: kidID, AccountID: accountID}}
	svc := &Service{Store: querier, Media: &media.MockProvider{}, Logger: zerolog.Nop()}

	signed, err := svc.PhotoUploadURL(context.Background(), accountID, kidID, "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, signed.URL)
	require.Equal(t, "kids/"+kidID.String()+"/photo.png", querier.photoPaths[kidID])
}

func TestPhotoUploadURLRejectsContentType(t *testing.T) {
	querier := newFakeQuerier()
	svc := &Service{Store: querier, Media: &media.MockProvider{}, Logger: zerolog.Nop()}

	_, err := svc.PhotoUploadURL(context.Background(), uuid.New(), uuid.New(), "application/pdf")
	require.Error(t, err)
}

func TestGetUnknownKid(t *testing.T) {
	svc := &Service{Store: newFakeQuerier(), Logger: zerolog.Nop()}
	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}
