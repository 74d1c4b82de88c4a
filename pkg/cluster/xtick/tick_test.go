package xtick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/util/xid"
)

func newIDs(t *testing.T) *xid.Generator {
	t.Helper()
	ids, err := xid.NewGenerator(xid.WithMachineID(func() (uint16, error) { return 7, nil }))
	require.NoError(t, err)
	return ids
}

// =============================================================================
// Tick
// =============================================================================

func TestNewTick(t *testing.T) {
	ids := newIDs(t)
	now := time.UnixMilli(1_700_000_000_123)

	a, err := NewTick(ids, now, "node-a:2552")
	require.NoError(t, err)
	b, err := NewTick(ids, now, "")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(1_700_000_000_123), a.TimestampMs)
	assert.Equal(t, "node-a:2552", a.Sender())
	assert.Empty(t, b.Sender())
	assert.NotNil(t, b.Tags)
	assert.True(t, a.Time().Equal(now))

	_, err = NewTick(nil, now, "")
	assert.ErrorIs(t, err, ErrNilIDGenerator)
}

func TestTick_Age(t *testing.T) {
	tk := Tick{ID: "1", TimestampMs: 10_000}
	assert.Equal(t, 30*time.Second, tk.Age(time.UnixMilli(40_000)))
	assert.Equal(t, -time.Second, tk.Age(time.UnixMilli(9_000)))
}

func TestTick_WireFormat(t *testing.T) {
	tk := Tick{ID: "42", TimestampMs: 1000, Tags: map[string]any{TagSender: "n1"}}
	data, err := tk.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"42","timestampMs":1000,"tags":{"sender":"n1"}}`, string(data))

	got, err := DecodeTick(data)
	require.NoError(t, err)
	assert.Equal(t, tk, got)

	data, err = Tick{ID: "1"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","timestampMs":0,"tags":{}}`, string(data))
}

func TestDecodeTick_Invalid(t *testing.T) {
	_, err := DecodeTick([]byte("not json"))
	assert.Error(t, err)
	_, err = DecodeTick([]byte(`{"timestampMs":1}`))
	assert.Error(t, err)
}

func TestTick_CloneIsolatesTags(t *testing.T) {
	tk := Tick{ID: "1", Tags: map[string]any{"k": "v"}}
	c := tk.clone()
	c.Tags["k"] = "changed"
	assert.Equal(t, "v", tk.Tags["k"])
}

// =============================================================================
// delaySchedule
// =============================================================================

func TestDelaySchedule_Next(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	s := delaySchedule{first: first, period: time.Second}

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before first", first.Add(-5 * time.Second), first},
		{"at first", first, first.Add(time.Second)},
		{"mid period", first.Add(1500 * time.Millisecond), first.Add(2 * time.Second)},
		{"on boundary", first.Add(3 * time.Second), first.Add(4 * time.Second)},
		{"missed periods skipped", first.Add(time.Hour + 10*time.Millisecond), first.Add(time.Hour + time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Next(tt.at))
		})
	}
}

func TestCronLogger(t *testing.T) {
	type entry struct {
		msg string
		err error
		kv  []any
	}
	var got []entry
	l := cronLogger{log: func(msg string, err error, kv []any) {
		got = append(got, entry{msg, err, kv})
	}}

	l.Info("wake", "now", 1)
	l.Error(assert.AnError, "panic", "job", "x")

	require.Len(t, got, 2)
	assert.Equal(t, entry{"wake", nil, []any{"now", 1}}, got[0])
	assert.Equal(t, entry{"panic", assert.AnError, []any{"job", "x"}}, got[1])
}
