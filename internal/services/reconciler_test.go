package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/archivist/internal/learning"
	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	mu    sync.Mutex
	users []uint
	fail  map[uint]bool
}

func (u *recordingUpdater) UpdateUserPreferences(ctx context.Context, userID uint) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = append(u.users, userID)
	if u.fail[userID] {
		return errors.New("user locked")
	}
	return nil
}

func seedHistory(chats *memChats, userID uint, query string, archiveIDs models.StringArray, helpful *bool, at time.Time) {
	chats.nextID++
	r := &models.ChatHistory{
		UserID:     userID,
		Query:      query,
		ArchiveIDs: archiveIDs,
		IsHelpful:  helpful,
	}
	r.ID = chats.nextID
	r.CreatedAt = at
	chats.records[r.ID] = r
}

func newTestReconciler(t *testing.T, chats *memChats, updater PreferenceUpdater) (*LearningReconciler, *learning.Model) {
	t.Helper()
	model := learning.NewModel(learning.NewStore(learning.StoreConfig{}), testClock, quietLogger())
	r, err := NewLearningReconciler(chats, model, updater, ReconcilerConfig{PoolSize: 2, Window: 24 * time.Hour}, quietLogger())
	require.NoError(t, err)
	r.now = testClock
	t.Cleanup(r.Release)
	return r, model
}

func TestLearningReconciler_RebuildReplaysWindow(t *testing.T) {
	chats := newMemChats()
	yes, no := true, false
	seedHistory(chats, 1, "财务 报表", models.StringArray{"1"}, nil, testNow.Add(-3*time.Hour))
	seedHistory(chats, 2, "人事 档案", nil, nil, testNow.Add(-2*time.Hour))
	seedHistory(chats, 1, "财务 报表", models.StringArray{"1"}, &yes, testNow.Add(-time.Hour))
	seedHistory(chats, 2, "合同", models.StringArray{"7"}, &no, testNow.Add(-30*time.Minute))
	seedHistory(chats, 1, "旧记录", models.StringArray{"2"}, nil, testNow.Add(-48*time.Hour))

	r, model := newTestReconciler(t, chats, &recordingUpdater{})

	n, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	patterns := model.QueryPatterns(1)
	require.Len(t, patterns, 2)
	assert.True(t, patterns[0].Timestamp.Before(patterns[1].Timestamp))

	// two successful records plus one helpful vote
	assert.Equal(t, int64(3), model.Store().SuccessCount("财务 报表"))
	assert.Len(t, model.Store().Failures("人事 档案"), 1)
	assert.Len(t, model.Store().Failures("合同"), 1)
	assert.Zero(t, model.Store().SuccessCount("旧记录"))
}

func TestLearningReconciler_RebuildKeepsNewestWithinLimit(t *testing.T) {
	chats := newMemChats()
	seedHistory(chats, 1, "最新", models.StringArray{"3"}, nil, testNow.Add(-10*time.Minute))
	seedHistory(chats, 1, "最早", models.StringArray{"1"}, nil, testNow.Add(-5*time.Hour))
	seedHistory(chats, 1, "较新", models.StringArray{"2"}, nil, testNow.Add(-time.Hour))

	model := learning.NewModel(learning.NewStore(learning.StoreConfig{}), testClock, quietLogger())
	r, err := NewLearningReconciler(chats, model, &recordingUpdater{}, ReconcilerConfig{PoolSize: 1, Window: 24 * time.Hour, Limit: 2}, quietLogger())
	require.NoError(t, err)
	r.now = testClock
	defer r.Release()

	n, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	patterns := model.QueryPatterns(1)
	require.Len(t, patterns, 2)
	assert.Equal(t, "较新", patterns[0].QueryText)
	assert.Equal(t, "最新", patterns[1].QueryText)
	assert.Zero(t, model.Store().SuccessCount("最早"))
}

func TestLearningReconciler_RebuildEmpty(t *testing.T) {
	r, _ := newTestReconciler(t, newMemChats(), &recordingUpdater{})

	n, err := r.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLearningReconciler_RefreshPreferences(t *testing.T) {
	chats := newMemChats()
	seedHistory(chats, 1, "财务", nil, nil, testNow.Add(-time.Hour))
	seedHistory(chats, 3, "人事", nil, nil, testNow.Add(-2*time.Hour))
	seedHistory(chats, 1, "合同", nil, nil, testNow.Add(-30*time.Minute))

	updater := &recordingUpdater{fail: map[uint]bool{3: true}}
	r, _ := newTestReconciler(t, chats, updater)

	require.NoError(t, r.RefreshPreferences(context.Background()))

	sort.Slice(updater.users, func(i, j int) bool { return updater.users[i] < updater.users[j] })
	assert.Equal(t, []uint{1, 3}, updater.users)

	// the second run only sees activity after the first one
	updater.users = nil
	require.NoError(t, r.RefreshPreferences(context.Background()))
	assert.Empty(t, updater.users)
}
