package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/store"
)

type fakeNotificationStore struct {
	created []store.CreateNotificationInput
	err     error
}

func (f *fakeNotificationStore) Create(_ context.Context, in store.CreateNotificationInput) (model.Notification, error) {
	if f.err != nil {
		return model.Notification{}, f.err
	}
	f.created = append(f.created, in)
	return model.Notification{
		ID:             "n-1",
		RecipientID:    in.RecipientID,
		ChannelID:      in.ChannelID,
		TemplateName:   in.TemplateName,
		Data:           in.Data,
		Status:         model.StatusPending,
		IdempotencyKey: in.IdempotencyKey,
	}, nil
}

type fakeChannelSource struct {
	channels map[string]model.Channel
}

func (f *fakeChannelSource) Get(_ context.Context, id string) (model.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return model.Channel{}, model.ErrNotFound
	}
	return ch, nil
}

type published struct {
	payload     any
	channelType model.ChannelType
	eventName   string
}

type fakePublisher struct {
	published []published
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, payload any, channelType model.ChannelType, eventName string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{payload: payload, channelType: channelType, eventName: eventName})
	return nil
}

func newService(channels map[string]model.Channel, notifications *fakeNotificationStore, publisher *fakePublisher) *Service {
	return &Service{
		Notifications: notifications,
		Channels:      &fakeChannelSource{channels: channels},
		Publisher:     publisher,
		Logger:        zerolog.Nop(),
	}
}

func emailChannel() map[string]model.Channel {
	return map[string]model.Channel{
		"ch-1": {ID: "ch-1", Type: model.ChannelEmail, IsActive: true},
	}
}

func TestCreatePublishesEmailEvent(t *testing.T) {
	notifications := &fakeNotificationStore{}
	publisher := &fakePublisher{}
	svc := newService(emailChannel(), notifications, publisher)

	n, err := svc.Create(context.Background(), CreateInput{
		RecipientID:  "ada@example.com",
		ChannelID:    "ch-1",
		TemplateName: "welcome",
		Data:         map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, n.Status)
	require.NotEmpty(t, n.IdempotencyKey, "a key must be generated when the caller omits one")

	require.Len(t, publisher.published, 1)
	require.Equal(t, model.ChannelEmail, publisher.published[0].channelType)
	require.Equal(t, event.EmailNotification, publisher.published[0].eventName)

	ev, ok := publisher.published[0].payload.(event.EmailEvent)
	require.True(t, ok)
	require.Equal(t, []string{"ada@example.com"}, ev.Emails)
	require.Equal(t, "welcome", ev.Context)
	require.Equal(t, "n-1", ev.Metadata.NotificationID)
}

func TestCreateKeepsCallerIdempotencyKey(t *testing.T) {
	notifications := &fakeNotificationStore{}
	svc := newService(emailChannel(), notifications, &fakePublisher{})

	n, err := svc.Create(context.Background(), CreateInput{
		RecipientID:    "ada@example.com",
		ChannelID:      "ch-1",
		TemplateName:   "welcome",
		IdempotencyKey: "caller-key",
	})
	require.NoError(t, err)
	require.Equal(t, "caller-key", n.IdempotencyKey)
	require.Equal(t, "caller-key", notifications.created[0].IdempotencyKey)
}

func TestCreateUnknownChannelFailsBeforeInsert(t *testing.T) {
	notifications := &fakeNotificationStore{}
	publisher := &fakePublisher{}
	svc := newService(nil, notifications, publisher)

	_, err := svc.Create(context.Background(), CreateInput{
		RecipientID: "ada@example.com",
		ChannelID:   "ch-missing",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Empty(t, notifications.created)
	require.Empty(t, publisher.published)
}

func TestCreateDuplicateKeyConflicts(t *testing.T) {
	notifications := &fakeNotificationStore{err: model.ErrConflict}
	publisher := &fakePublisher{}
	svc := newService(emailChannel(), notifications, publisher)

	_, err := svc.Create(context.Background(), CreateInput{
		RecipientID:    "ada@example.com",
		ChannelID:      "ch-1",
		IdempotencyKey: "dupe",
	})
	require.ErrorIs(t, err, model.ErrConflict)
	require.Empty(t, publisher.published, "nothing may be published for a duplicate")
}

func TestCreatePublishFailureReturnsError(t *testing.T) {
	notifications := &fakeNotificationStore{}
	publisher := &fakePublisher{err: errors.New("broker unreachable")}
	svc := newService(emailChannel(), notifications, publisher)

	n, err := svc.Create(context.Background(), CreateInput{
		RecipientID: "ada@example.com",
		ChannelID:   "ch-1",
	})
	require.Error(t, err)
	// The row exists even though publication failed.
	require.Equal(t, "n-1", n.ID)
	require.Len(t, notifications.created, 1)
}

func TestCreateUnroutableChannelTypeStaysPending(t *testing.T) {
	channels := map[string]model.Channel{
		"ch-slack": {ID: "ch-slack", Type: model.ChannelSlack, IsActive: true},
	}
	notifications := &fakeNotificationStore{}
	publisher := &fakePublisher{}
	svc := newService(channels, notifications, publisher)

	n, err := svc.Create(context.Background(), CreateInput{
		RecipientID: "#alerts",
		ChannelID:   "ch-slack",
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, n.Status)
	require.Empty(t, publisher.published)
}
