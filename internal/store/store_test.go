package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/astroline/consult-agent-go/internal/model"
)

type mockSessionStateRepo struct {
	mock.Mock
}

func (m *mockSessionStateRepo) Find(ctx context.Context, ownerID string) (*model.SessionStateRow, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionStateRow), args.Error(1)
}

func (m *mockSessionStateRepo) Upsert(ctx context.Context, ownerID string, sessionType model.SessionType, params json.RawMessage) error {
	args := m.Called(ctx, ownerID, sessionType, params)
	return args.Error(0)
}

func (m *mockSessionStateRepo) Delete(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func (m *mockSessionStateRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

func callParams() model.SessionParams {
	return model.SessionParams{
		SessionID: "s1",
		PeerID:    "u1",
		PeerName:  "Rajesh",
		CallType:  model.CallTypeVideo,
		Rate:      50,
	}
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("writes through to the repository", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Upsert", mock.Anything, "owner-1", model.SessionTypeCall, mock.Anything).Return(nil)

		s := New(repo, "owner-1")
		s.Start(ctx, model.SessionTypeCall, callParams())

		session := s.Current()
		require.NotNil(t, session)
		assert.Equal(t, model.SessionTypeCall, session.Type)
		assert.Equal(t, "s1", session.Params.SessionID)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure keeps memory state", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Upsert", mock.Anything, "owner-1", model.SessionTypeChat, mock.Anything).
			Return(errors.New("db down"))

		s := New(repo, "owner-1")
		s.Start(ctx, model.SessionTypeChat, callParams())

		require.NotNil(t, s.Current(), "best effort: memory stays authoritative")
	})

	t.Run("second start fully overwrites the first", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Upsert", mock.Anything, "owner-1", mock.Anything, mock.Anything).Return(nil)

		s := New(repo, "owner-1")
		s.Start(ctx, model.SessionTypeChat, model.SessionParams{SessionID: "a"})
		s.Start(ctx, model.SessionTypeCall, model.SessionParams{SessionID: "b"})

		session := s.Current()
		require.NotNil(t, session)
		assert.Equal(t, "b", session.Params.SessionID)
		assert.Equal(t, model.SessionTypeCall, session.Type)
	})
}

func TestEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("clears memory and storage", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Upsert", mock.Anything, "owner-1", mock.Anything, mock.Anything).Return(nil)
		repo.On("Delete", mock.Anything, "owner-1").Return(nil)

		s := New(repo, "owner-1")
		s.Start(ctx, model.SessionTypeCall, callParams())
		s.End(ctx)

		assert.Nil(t, s.Current())
		repo.AssertCalled(t, "Delete", mock.Anything, "owner-1")
	})

	t.Run("end with no session still clears storage", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Delete", mock.Anything, "owner-1").Return(nil)

		s := New(repo, "owner-1")
		s.End(ctx)

		assert.Nil(t, s.Current())
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a persisted session", func(t *testing.T) {
		params := callParams()
		raw, err := json.Marshal(params)
		require.NoError(t, err)

		repo := new(mockSessionStateRepo)
		repo.On("Find", mock.Anything, "owner-1").Return(&model.SessionStateRow{
			OwnerID:     "owner-1",
			SessionType: model.SessionTypeCall,
			Params:      raw,
			UpdatedAt:   time.Now(),
		}, nil)

		s := New(repo, "owner-1")
		restored := s.Restore(ctx)

		require.NotNil(t, restored)
		assert.Equal(t, model.SessionTypeCall, restored.Type)
		assert.Equal(t, params, restored.Params)
		assert.Equal(t, restored, s.Current())
	})

	t.Run("no persisted session restores nil", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Find", mock.Anything, "owner-1").Return(nil, nil)

		s := New(repo, "owner-1")
		assert.Nil(t, s.Restore(ctx))
		assert.Nil(t, s.Current())
	})

	t.Run("unreadable persisted session is discarded", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Find", mock.Anything, "owner-1").Return(&model.SessionStateRow{
			OwnerID:     "owner-1",
			SessionType: model.SessionTypeChat,
			Params:      json.RawMessage(`{not json`),
			UpdatedAt:   time.Now(),
		}, nil)
		repo.On("Delete", mock.Anything, "owner-1").Return(nil)

		s := New(repo, "owner-1")
		assert.Nil(t, s.Restore(ctx))
		repo.AssertCalled(t, "Delete", mock.Anything, "owner-1")
	})

	t.Run("repository failure restores nil without panic", func(t *testing.T) {
		repo := new(mockSessionStateRepo)
		repo.On("Find", mock.Anything, "owner-1").Return(nil, errors.New("db down"))

		s := New(repo, "owner-1")
		assert.Nil(t, s.Restore(ctx))
	})
}
