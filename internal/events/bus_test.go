package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

type fakeEventStore struct {
	topics []string
	err    error
}

func (f *fakeEventStore) InsertEvent(ctx context.Context, topic string, accountID uuid.UUID, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

type fakeNotifier struct {
	topics []string
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, topic string, accountID uuid.UUID, payload any) error {
	f.topics = append(f.topics, topic)
	return f.err
}

func TestPublishStoresAndFansOut(t *testing.T) {
	eventStore := &fakeEventStore{}
	first := &fakeNotifier{}
	second := &fakeNotifier{}
	bus := &Bus{Store: eventStore, Notifiers: []Notifier{first, second}, Logger: zerolog.Nop()}

	bus.Publish(context.Background(), TopicRegistrationCreated, uuid.New(), map[string]any{"n": 1})

	require.Equal(t, []string{TopicRegistrationCreated}, eventStore.topics)
	require.Equal(t, []string{TopicRegistrationCreated}, first.topics)
	require.Equal(t, []string{TopicRegistrationCreated}, second.topics)
}

func TestPublishSurvivesFailures(t *testing.T) {
	eventStore := &fakeEventStore{err: errors.New("db down")}
	broken := &fakeNotifier{err: errors.New("smtp down")}
	healthy := &fakeNotifier{}
	bus := &Bus{Store: eventStore, Notifiers: []Notifier{broken, healthy}, Logger: zerolog.Nop()}

	// Must not panic or abort the fan-out.
	bus.Publish(context.Background(), TopicInvoiceCreated, uuid.New(), nil)
	require.Equal(t, []string{TopicInvoiceCreated}, healthy.topics)
}

type fakeAccounts struct {
	account store.Account
}

func (f *fakeAccounts) GetAccount(ctx context.Context, id uuid.UUID) (store.Account, error) {
	return f.account, nil
}

func TestEmailNotifierSendsForKnownTopics(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	notifier := &EmailNotifier{
		Sender:   outbox,
		Accounts: &fakeAccounts{account: store.Account{Email: "parent@example.org"}},
	}

	require.NoError(t, notifier.Notify(context.Background(), TopicRegistrationCreated, uuid.New(), nil))
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "parent@example.org", outbox.Outbox[0].To)

	require.NoError(t, notifier.Notify(context.Background(), TopicKidCreated, uuid.New(), nil))
	require.Len(t, outbox.Outbox, 1, "kid topics do not email")
}
