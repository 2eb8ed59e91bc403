package background

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/presenter"
)

type fakePlatform struct {
	mu        sync.Mutex
	channels  []channel.Channel
	shown     []presenter.Notification
	cancelled []string
}

func (f *fakePlatform) EnsureChannel(ctx context.Context, ch channel.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
	return nil
}

func (f *fakePlatform) ShowNotification(ctx context.Context, n presenter.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakePlatform) CancelNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakePlatform) CancelAll(ctx context.Context) error { return nil }

type fakeStateRepo struct {
	row *model.SessionStateRow
}

func (f *fakeStateRepo) Find(ctx context.Context, ownerID string) (*model.SessionStateRow, error) {
	return f.row, nil
}

func (f *fakeStateRepo) Upsert(ctx context.Context, ownerID string, sessionType model.SessionType, params json.RawMessage) error {
	return nil
}

func (f *fakeStateRepo) Delete(ctx context.Context, ownerID string) error { return nil }

func (f *fakeStateRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func newHandler(repo *fakeStateRepo) (*Handler, *fakePlatform) {
	platform := &fakePlatform{}
	registry := channel.NewRegistry(platform)
	p := presenter.New(platform, registry, 45*time.Second)
	return NewHandler(registry, p, repo, "astro-1"), platform
}

func TestHandleRequest(t *testing.T) {
	t.Run("presents request notification", func(t *testing.T) {
		h, platform := newHandler(&fakeStateRepo{})

		event := &model.RequestEvent{
			SessionID: "s1",
			Kind:      model.KindCallRequest,
			CallType:  model.CallTypeAudio,
			Requester: model.Requester{UserID: "u1", DisplayName: "Priya"},
			Rate:      12,
		}
		h.HandleRequest(context.Background(), event)

		require.Len(t, platform.shown, 1)
		assert.Equal(t, "s1", platform.shown[0].ID)
		assert.NotEmpty(t, platform.channels, "channels ensured before presenting")
	})

	t.Run("skips request for the already-active session", func(t *testing.T) {
		params, _ := json.Marshal(model.SessionParams{SessionID: "s1"})
		repo := &fakeStateRepo{row: &model.SessionStateRow{
			OwnerID:     "astro-1",
			SessionType: model.SessionTypeCall,
			Params:      params,
		}}
		h, platform := newHandler(repo)

		h.HandleRequest(context.Background(), &model.RequestEvent{
			SessionID: "s1",
			Kind:      model.KindCallRequest,
		})

		assert.Empty(t, platform.shown)
	})
}

func TestHandleMessage(t *testing.T) {
	h, platform := newHandler(&fakeStateRepo{})

	h.HandleMessage(context.Background(), &model.MessageEvent{
		SessionID:  "s2",
		SenderName: "Priya",
		Preview:    "hello",
	})

	require.Len(t, platform.shown, 1)
	assert.Equal(t, "msg:s2", platform.shown[0].ID)
}

func TestHandleCancel(t *testing.T) {
	h, platform := newHandler(&fakeStateRepo{})

	h.HandleCancel(context.Background(), "s3")

	assert.Equal(t, []string{"s3"}, platform.cancelled)
}
