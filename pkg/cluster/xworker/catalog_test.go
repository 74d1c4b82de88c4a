package xworker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	noop := JobFunc(func(context.Context, xtick.Tick) error { return nil })

	require.NoError(t, c.Register("sample-singleton", noop))
	require.NoError(t, c.Register("sample-all-roles", noop))
	assert.ErrorIs(t, c.Register("sample-singleton", noop), ErrDuplicateJob)
	assert.ErrorIs(t, c.Register("", noop), ErrEmptyName)
	assert.ErrorIs(t, c.Register("x", nil), ErrNilJob)

	job, err := c.Lookup("sample-all-roles")
	require.NoError(t, err)
	assert.NotNil(t, job)
	_, err = c.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)

	assert.Equal(t, []string{"sample-all-roles", "sample-singleton"}, c.Names())
	assert.Panics(t, func() { c.MustRegister("sample-singleton", noop) })
}
