package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shahar-caura/relay/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestRecord_SuccessAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := intent.NewResult(intent.SendEmail, intent.Params{"recipient": "Carlos", "message": "Late"})
	require.NoError(t, s.Record(ctx, "email Carlos", res, nil))

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "email Carlos", r.Input)
	assert.Equal(t, intent.SendEmail, r.Intent)
	assert.Equal(t, intent.Params{"recipient": "Carlos", "message": "Late"}, r.Params)
	assert.Empty(t, r.ErrorKind)
	assert.True(t, r.CreatedAt.Equal(time.Date(2025, 6, 1, 9, 0, 1, 0, time.UTC)), "created_at = %s", r.CreatedAt)
}

func TestRecord_Failure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "book a flight", nil, intent.UnrecognizedIntent("book_flight")))

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Intent)
	assert.Nil(t, records[0].Params)
	assert.Equal(t, "unrecognized_intent", records[0].ErrorKind)
	assert.Contains(t, records[0].Error, "book_flight")
}

func TestList_NewestFirstAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, in := range []string{"one", "two", "three"} {
		require.NoError(t, s.Record(ctx, in, intent.NewResult(intent.NoAction, nil), nil))
	}

	records, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "three", records[0].Input)
	assert.Equal(t, "two", records[1].Input)
}

func TestList_SubSecondOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 5, 0, time.UTC)
	times := []time.Time{base, base.Add(100 * time.Millisecond), base.Add(time.Second)}
	for i, in := range []string{"a", "b", "c"} {
		ts := times[i]
		s.now = func() time.Time { return ts }
		require.NoError(t, s.Record(ctx, in, intent.NewResult(intent.NoAction, nil), nil))
	}

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{records[0].Input, records[1].Input, records[2].Input})
}

func TestList_Empty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestContacts_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "email Carlos", intent.NewResult(intent.SendEmail, intent.Params{"recipient": "Carlos"}), nil))
	require.NoError(t, s.Record(ctx, "meet Dana", intent.NewResult(intent.ScheduleMeeting, intent.Params{"recipient": "Dana"}), nil))
	require.NoError(t, s.Record(ctx, "meet carlos", intent.NewResult(intent.ScheduleMeeting, intent.Params{"recipient": " carlos "}), nil))
	require.NoError(t, s.Record(ctx, "weather?", intent.NewResult(intent.NoAction, nil), nil))
	require.NoError(t, s.Record(ctx, "email nobody", intent.NewResult(intent.SendEmail, intent.Params{"recipient": ""}), nil))

	contacts, err := s.Contacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	assert.Equal(t, "Carlos", contacts[0].Name)
	assert.Equal(t, 2, contacts[0].Requests)
	assert.Equal(t, intent.ScheduleMeeting, contacts[0].LastIntent)
	assert.True(t, contacts[0].LastSeen.After(contacts[0].FirstSeen))

	assert.Equal(t, "Dana", contacts[1].Name)
	assert.Equal(t, 1, contacts[1].Requests)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), "x", intent.NewResult(intent.NoAction, nil), nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, len(migrations), version)

	records, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecord_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Record(ctx, "x", intent.NewResult(intent.NoAction, nil), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.List(context.Background(), 1)
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, 1},
		{1, 1},
		{50, 50},
		{100, 100},
		{1000, MaxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}
