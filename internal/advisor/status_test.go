package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard/internal/types"
)

type fakeStateStore struct {
	entries map[string]time.Time
	getErr  error
	putErr  error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{entries: make(map[string]time.Time)}
}

func (f *fakeStateStore) Get(_ context.Context, farmID, key string) (time.Time, bool, error) {
	if f.getErr != nil {
		return time.Time{}, false, f.getErr
	}
	ts, ok := f.entries[farmID+"/"+key]
	return ts, ok, nil
}

func (f *fakeStateStore) Put(_ context.Context, farmID, key string, ts time.Time) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[farmID+"/"+key] = ts
	return nil
}

type fakeContactLog struct {
	contacted bool
	err       error
}

func (f *fakeContactLog) ContactedSince(context.Context, string, time.Time) (bool, error) {
	return f.contacted, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func criticalPestRecs() []types.Recommendation {
	return []types.Recommendation{
		{ID: RuleCriticalPest, Urgency: types.UrgencyCritical},
		{ID: RuleExtremeHeat, Urgency: types.UrgencyWarning},
	}
}

func TestAggregatorStatus_NoPestReport(t *testing.T) {
	agg := NewAggregator(newFakeStateStore(), &fakeContactLog{}, nil)

	status, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), nil)
	require.NoError(t, err)
	assert.False(t, status.HasUrgent)
	assert.Zero(t, status.UrgentCount)
}

func TestAggregatorStatus_UrgentWithoutDismissal(t *testing.T) {
	agg := NewAggregator(newFakeStateStore(), &fakeContactLog{contacted: true}, nil)
	report := pest(types.InfestationCritical)

	status, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), report)
	require.NoError(t, err)
	assert.True(t, status.HasUrgent)
	assert.Equal(t, 1, status.UrgentCount)
	assert.True(t, status.AgronomistContacted)
}

func TestAggregatorStatus_NoCriticalRecommendation(t *testing.T) {
	agg := NewAggregator(newFakeStateStore(), &fakeContactLog{}, nil)
	report := pest(types.InfestationLow)
	recs := []types.Recommendation{{ID: RuleExtremeHeat, Urgency: types.UrgencyWarning}}

	status, err := agg.Status(context.Background(), "farm-1", recs, report)
	require.NoError(t, err)
	assert.False(t, status.HasUrgent)
}

func TestAggregatorStatus_DismissalSuppressesUntilNewerReport(t *testing.T) {
	dismissedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	state := newFakeStateStore()
	state.entries["farm-1/"+DismissalKeyCriticalPest] = dismissedAt
	agg := NewAggregator(state, &fakeContactLog{}, nil)

	// Report analyzed exactly at the dismissal time stays suppressed.
	report := pest(types.InfestationCritical)
	report.AnalyzedAt = dismissedAt
	status, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), report)
	require.NoError(t, err)
	assert.False(t, status.HasUrgent)

	// One second earlier stays suppressed too.
	report.AnalyzedAt = dismissedAt.Add(-time.Second)
	status, err = agg.Status(context.Background(), "farm-1", criticalPestRecs(), report)
	require.NoError(t, err)
	assert.False(t, status.HasUrgent)

	// A strictly newer report re-arms the flag.
	report.AnalyzedAt = dismissedAt.Add(time.Second)
	status, err = agg.Status(context.Background(), "farm-1", criticalPestRecs(), report)
	require.NoError(t, err)
	assert.True(t, status.HasUrgent)
}

func TestAggregatorStatus_StateErrorPropagates(t *testing.T) {
	state := newFakeStateStore()
	state.getErr = errors.New("connection refused")
	agg := NewAggregator(state, &fakeContactLog{}, nil)

	_, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), pest(types.InfestationCritical))
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestAggregatorStatus_ContactLookupFailureIsNonFatal(t *testing.T) {
	agg := NewAggregator(newFakeStateStore(), &fakeContactLog{err: errors.New("timeout")}, nil)

	status, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), pest(types.InfestationCritical))
	require.NoError(t, err)
	assert.True(t, status.HasUrgent)
	assert.False(t, status.AgronomistContacted)
}

func TestAggregatorStatus_NilContactLog(t *testing.T) {
	agg := NewAggregator(newFakeStateStore(), nil, nil)

	status, err := agg.Status(context.Background(), "farm-1", criticalPestRecs(), pest(types.InfestationCritical))
	require.NoError(t, err)
	assert.True(t, status.HasUrgent)
	assert.False(t, status.AgronomistContacted)
}

func TestAggregatorDismiss(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	state := newFakeStateStore()
	agg := NewAggregator(state, nil, nil)

	require.NoError(t, agg.Dismiss(context.Background(), "farm-1", DismissalKeyCriticalPest, fixedClock{t: now}))
	assert.Equal(t, now, state.entries["farm-1/"+DismissalKeyCriticalPest])
}
