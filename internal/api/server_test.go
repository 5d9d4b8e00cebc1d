package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/order"
	"github.com/example/notification-pipeline/internal/store"
)

type fakeNotifyService struct {
	created []notify.CreateInput
	err     error
}

func (f *fakeNotifyService) Create(_ context.Context, in notify.CreateInput) (model.Notification, error) {
	if f.err != nil {
		return model.Notification{}, f.err
	}
	f.created = append(f.created, in)
	return model.Notification{ID: "n-1", RecipientID: in.RecipientID, Status: model.StatusPending}, nil
}

type fakeNotificationReader struct {
	notifications map[string]model.Notification
	list          []model.Notification
	total         int
	logs          []model.DeliveryLog
	lastFilter    store.NotificationFilter
}

func (f *fakeNotificationReader) Get(_ context.Context, id string) (model.Notification, error) {
	n, ok := f.notifications[id]
	if !ok {
		return model.Notification{}, model.ErrNotFound
	}
	return n, nil
}

func (f *fakeNotificationReader) List(_ context.Context, filter store.NotificationFilter) ([]model.Notification, int, error) {
	f.lastFilter = filter
	return f.list, f.total, nil
}

func (f *fakeNotificationReader) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.notifications[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeNotificationReader) ListDeliveryLogs(_ context.Context, _ string) ([]model.DeliveryLog, error) {
	return f.logs, nil
}

type fakeOrderService struct {
	created []order.CreateInput
}

func (f *fakeOrderService) Create(_ context.Context, in order.CreateInput) (model.Order, error) {
	f.created = append(f.created, in)
	return model.Order{ID: "o-1", OrderNumber: "ORD-1", UserID: in.UserID, Total: in.Total}, nil
}

type fakeOrderReader struct {
	orders map[string]model.Order
}

func (f *fakeOrderReader) Get(_ context.Context, id string) (model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, model.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderReader) List(_ context.Context, _ store.OrderFilter) ([]model.Order, int, error) {
	return nil, 0, nil
}

type fakeChannelRegistry struct {
	createErr error
	channels  map[string]model.Channel
}

func (f *fakeChannelRegistry) Create(_ context.Context, in store.ChannelInput) (model.Channel, error) {
	if f.createErr != nil {
		return model.Channel{}, f.createErr
	}
	return model.Channel{ID: "ch-1", Name: in.Name, Type: in.Type, IsActive: in.IsActive, Configuration: in.Configuration}, nil
}

func (f *fakeChannelRegistry) Get(_ context.Context, id string) (model.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return model.Channel{}, model.ErrNotFound
	}
	return ch, nil
}

func (f *fakeChannelRegistry) Update(_ context.Context, id string, in store.ChannelInput) (model.Channel, error) {
	if _, ok := f.channels[id]; !ok {
		return model.Channel{}, model.ErrNotFound
	}
	return model.Channel{ID: id, Name: in.Name, Type: in.Type, IsActive: in.IsActive, Configuration: in.Configuration}, nil
}

func (f *fakeChannelRegistry) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.channels[id]; !ok {
		return model.ErrNotFound
	}
	return nil
}

func (f *fakeChannelRegistry) List(_ context.Context, _ store.ChannelFilter) ([]model.Channel, int, error) {
	return nil, 0, nil
}

type fakeTemplateRegistry struct {
	templates map[string]model.Template
	restored  []string
}

func (f *fakeTemplateRegistry) Create(_ context.Context, in store.TemplateInput) (model.Template, error) {
	return model.Template{ID: "t-1", Name: in.Name, Channel: in.Channel, Body: in.Body, Variables: in.Variables}, nil
}

func (f *fakeTemplateRegistry) Get(_ context.Context, id string) (model.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return model.Template{}, model.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplateRegistry) Update(_ context.Context, id string, in store.TemplateInput) (model.Template, error) {
	if _, ok := f.templates[id]; !ok {
		return model.Template{}, model.ErrNotFound
	}
	return model.Template{ID: id, Name: in.Name, Channel: in.Channel}, nil
}

func (f *fakeTemplateRegistry) SoftDelete(_ context.Context, id string) error {
	if _, ok := f.templates[id]; !ok {
		return model.ErrNotFound
	}
	return nil
}

func (f *fakeTemplateRegistry) Restore(_ context.Context, id string) (model.Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return model.Template{}, model.ErrNotFound
	}
	f.restored = append(f.restored, id)
	return tpl, nil
}

func (f *fakeTemplateRegistry) List(_ context.Context, _ store.TemplateFilter) ([]model.Template, int, error) {
	return nil, 0, nil
}

func newTestServer() (*Server, *fakeNotifyService, *fakeNotificationReader) {
	notifySvc := &fakeNotifyService{}
	reader := &fakeNotificationReader{notifications: map[string]model.Notification{}}
	srv := &Server{
		Notifications:     notifySvc,
		NotificationStore: reader,
		Orders:            &fakeOrderService{},
		OrderStore:        &fakeOrderReader{orders: map[string]model.Order{}},
		Channels:          &fakeChannelRegistry{channels: map[string]model.Channel{}},
		Templates:         &fakeTemplateRegistry{templates: map[string]model.Template{}},
		Logger:            zerolog.Nop(),
	}
	return srv, notifySvc, reader
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateNotificationCreated(t *testing.T) {
	srv, notifySvc, _ := newTestServer()
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/v1/notifications", map[string]any{
		"recipientId":  "ada@example.com",
		"channelId":    "ch-1",
		"templateName": "welcome",
		"data":         map[string]any{"name": "Ada"},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, notifySvc.created, 1)
	require.Equal(t, "ada@example.com", notifySvc.created[0].RecipientID)

	var n model.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	require.Equal(t, "n-1", n.ID)
	require.Equal(t, model.StatusPending, n.Status)
}

func TestCreateNotificationValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Router()

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing recipient", body: map[string]any{"channelId": "ch-1", "templateName": "welcome"}},
		{name: "missing channel", body: map[string]any{"recipientId": "r", "templateName": "welcome"}},
		{name: "missing template", body: map[string]any{"recipientId": "r", "channelId": "ch-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/notifications", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateNotificationConflict(t *testing.T) {
	srv, notifySvc, _ := newTestServer()
	notifySvc.err = model.ErrConflict
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/v1/notifications", map[string]any{
		"recipientId":  "ada@example.com",
		"channelId":    "ch-1",
		"templateName": "welcome",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetNotificationNotFound(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doRequest(t, srv.Router(), http.MethodGet, "/v1/notifications/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNotificationsPagination(t *testing.T) {
	srv, _, reader := newTestServer()
	reader.list = []model.Notification{{ID: "n-3"}}
	reader.total = 3

	rec := doRequest(t, srv.Router(), http.MethodGet, "/v1/notifications?page=2&limit=2&status=sent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, reader.lastFilter.Page)
	require.Equal(t, 2, reader.lastFilter.Limit)
	require.Equal(t, "sent", reader.lastFilter.Status)

	var resp PaginatedResponse[model.Notification]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, PageMeta{
		CurrentPage:     2,
		ItemsPerPage:    2,
		TotalItems:      3,
		TotalPages:      2,
		HasNextPage:     false,
		HasPreviousPage: true,
	}, resp.Meta)
}

func TestListDeliveryLogsRequiresNotification(t *testing.T) {
	srv, _, reader := newTestServer()
	rec := doRequest(t, srv.Router(), http.MethodGet, "/v1/notifications/missing/delivery-logs", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	reader.notifications["n-1"] = model.Notification{ID: "n-1"}
	rec = doRequest(t, srv.Router(), http.MethodGet, "/v1/notifications/n-1/delivery-logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String(), "empty log list must serialize as [], not null")
}

func TestCreateOrder(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doRequest(t, srv.Router(), http.MethodPost, "/v1/orders", map[string]any{
		"userId":     "u-1",
		"total":      42.5,
		"channelIds": []string{"ch-1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var o model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	require.Equal(t, "o-1", o.ID)
}

func TestCreateChannelValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/v1/channels", map[string]any{
		"name": "mail", "type": "fax", "configuration": map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/channels", map[string]any{
		"name": "mail",
		"type": "email",
		"configuration": map[string]any{
			"provider": "sendgrid", "fromEmail": "noreply@example.com",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateChannelConfigErrorIs400(t *testing.T) {
	srv, _, _ := newTestServer()
	srv.Channels = &fakeChannelRegistry{
		createErr: &model.ConfigError{Type: model.ChannelEmail, Missing: []string{"fromEmail"}},
	}

	rec := doRequest(t, srv.Router(), http.MethodPost, "/v1/channels", map[string]any{
		"name": "mail", "type": "email", "configuration": map[string]any{"provider": "sendgrid"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "fromEmail")
}

func TestAvailableChannels(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doRequest(t, srv.Router(), http.MethodGet, "/v1/channels/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var channels []model.AvailableChannel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	require.Len(t, channels, 5)
	types := make([]string, 0, len(channels))
	for _, ch := range channels {
		types = append(types, string(ch.Type))
	}
	require.Equal(t, "email,sms,push,whatsapp,slack", strings.Join(types, ","))
}

func TestRestoreTemplate(t *testing.T) {
	srv, _, _ := newTestServer()
	registry := &fakeTemplateRegistry{templates: map[string]model.Template{
		"t-1": {ID: "t-1", Name: "welcome", Channel: model.ChannelEmail},
	}}
	srv.Templates = registry

	rec := doRequest(t, srv.Router(), http.MethodPost, "/v1/templates/t-1/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"t-1"}, registry.restored)

	rec = doRequest(t, srv.Router(), http.MethodPost, "/v1/templates/missing/restore", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNotification(t *testing.T) {
	srv, _, reader := newTestServer()
	reader.notifications["n-1"] = model.Notification{ID: "n-1"}

	rec := doRequest(t, srv.Router(), http.MethodDelete, "/v1/notifications/n-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv.Router(), http.MethodDelete, "/v1/notifications/n-1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
