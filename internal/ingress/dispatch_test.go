package ingress

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astroline/consult-agent-go/internal/background"
	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/coordinator"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/presenter"
	"github.com/astroline/consult-agent-go/internal/shell"
	"github.com/astroline/consult-agent-go/internal/store"
)

type fakePlatform struct {
	mu        sync.Mutex
	shown     []presenter.Notification
	cancelled []string
}

func (f *fakePlatform) EnsureChannel(ctx context.Context, ch channel.Channel) error { return nil }

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

type fakeRepo struct {
	mu  sync.Mutex
	row *model.SessionStateRow
}

func (f *fakeRepo) Find(ctx context.Context, ownerID string) (*model.SessionStateRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.row, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, ownerID string, sessionType model.SessionType, params json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.row = &model.SessionStateRow{OwnerID: ownerID, SessionType: sessionType, Params: params, UpdatedAt: time.Now()}
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.row = nil
	return nil
}

func (f *fakeRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

type fakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (f *fakeNavigator) Navigate(ctx context.Context, route string, params any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	return nil
}

type fakeNotifier struct{}

func (f *fakeNotifier) Decline(ctx context.Context, sessionID string, reason string) error {
	return nil
}

type dispatchRig struct {
	dispatcher *Dispatcher
	coord      *coordinator.Coordinator
	shell      *shell.Controller
	store      *store.Store
	platform   *fakePlatform
	nav        *fakeNavigator
}

func newDispatchRig(foreground bool) *dispatchRig {
	platform := &fakePlatform{}
	registry := channel.NewRegistry(platform)
	registry.EnsureChannels(context.Background())

	repo := &fakeRepo{}
	sessionStore := store.New(repo, "owner-1")
	shellController := shell.NewController(sessionStore)
	shellController.SetAppState(foreground)

	p := presenter.New(platform, registry, time.Minute)
	nav := &fakeNavigator{}
	coord := coordinator.New(sessionStore, p, shellController, shellController, nav, &fakeNotifier{}, time.Minute)
	bg := background.NewHandler(registry, p, repo, "owner-1")

	return &dispatchRig{
		dispatcher: NewDispatcher(coord, shellController, bg),
		coord:      coord,
		shell:      shellController,
		store:      sessionStore,
		platform:   platform,
		nav:        nav,
	}
}

func callPayload(sessionID string) Payload {
	return Payload{
		"type":      "call_request",
		"sessionId": sessionID,
		"callType":  "video",
		"userId":    "u1",
		"userName":  "Rajesh",
		"rate":      float64(50),
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("foreground request reaches the coordinator modal path", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, callPayload("s1"), model.SourcePushData)

		snap := rig.shell.Snapshot()
		assert.Equal(t, shell.OverlayCallModal, snap.Overlay)
		assert.Empty(t, rig.platform.shown, "no system notification in foreground")
	})

	t.Run("background request takes the restricted presenter path", func(t *testing.T) {
		rig := newDispatchRig(false)

		rig.dispatcher.Dispatch(ctx, callPayload("s1"), model.SourcePushData)

		require.Len(t, rig.platform.shown, 1)
		assert.Equal(t, "s1", rig.platform.shown[0].ID)
		assert.Equal(t, shell.OverlayNone, rig.shell.Snapshot().Overlay)
		assert.Nil(t, rig.coord.Pending(model.KindCallRequest), "background path keeps no coordinator state")
	})

	t.Run("background chat message becomes a notification", func(t *testing.T) {
		rig := newDispatchRig(false)

		rig.dispatcher.Dispatch(ctx, Payload{
			"type":      "chat_message",
			"sessionId": "s1",
			"userName":  "Priya",
			"message":   "hello",
		}, model.SourcePushData)

		require.Len(t, rig.platform.shown, 1)
		assert.Equal(t, "msg:s1", rig.platform.shown[0].ID)
	})

	t.Run("foreground chat message shows nothing", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, Payload{
			"type":      "chat_message",
			"sessionId": "s1",
		}, model.SourceSocket)

		assert.Empty(t, rig.platform.shown)
	})

	t.Run("accepted event with request echo starts the session", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, Payload{
			"type":      "request_accepted",
			"sessionId": "s1",
			"request": map[string]any{
				"type":      "call_request",
				"sessionId": "s1",
				"callType":  "audio",
				"userName":  "Rajesh",
			},
		}, model.SourceSocket)

		session := rig.store.Current()
		require.NotNil(t, session)
		assert.Equal(t, "s1", session.Params.SessionID)
		assert.Equal(t, []string{coordinator.RouteLiveCall}, rig.nav.routes)
	})

	t.Run("cancelled event clears a pending request", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, callPayload("s1"), model.SourceSocket)
		rig.dispatcher.Dispatch(ctx, Payload{
			"type":      "request_cancelled",
			"sessionId": "s1",
		}, model.SourceSocket)

		assert.Nil(t, rig.coord.Pending(model.KindCallRequest))
		assert.Equal(t, shell.OverlayNone, rig.shell.Snapshot().Overlay)
	})

	t.Run("gift reaches the shell", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, Payload{
			"type":     "gift",
			"giftName": "Rose",
			"userName": "Priya",
		}, model.SourceSocket)

		assert.Equal(t, shell.OverlayGift, rig.shell.Snapshot().Overlay)
	})

	t.Run("unknown type is a silent no-op", func(t *testing.T) {
		rig := newDispatchRig(true)

		assert.NotPanics(t, func() {
			rig.dispatcher.Dispatch(ctx, Payload{"type": "promo_banner", "sessionId": "x"}, model.SourcePushData)
		})
		assert.Equal(t, shell.OverlayNone, rig.shell.Snapshot().Overlay)
		assert.Empty(t, rig.platform.shown)
	})

	t.Run("malformed request payload is dropped", func(t *testing.T) {
		rig := newDispatchRig(true)

		rig.dispatcher.Dispatch(ctx, Payload{"type": "call_request"}, model.SourcePushData)

		assert.Equal(t, shell.OverlayNone, rig.shell.Snapshot().Overlay)
		assert.Nil(t, rig.coord.Pending(model.KindCallRequest))
	})
}
