package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageScopeFollowsCallerCancel(t *testing.T) {
	p := &page{ctx: context.Background(), cancel: func() {}}

	caller, cancelCaller := context.WithCancel(context.Background())
	c, cancel := p.scope(caller)
	defer cancel()

	require.NoError(t, c.Err())
	cancelCaller()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("scoped context not cancelled with caller")
	}
	assert.ErrorIs(t, c.Err(), context.Canceled)
}

func TestPageScopeKeepsCallerDeadline(t *testing.T) {
	p := &page{ctx: context.Background(), cancel: func() {}}

	caller, cancelCaller := context.WithTimeout(context.Background(), time.Minute)
	defer cancelCaller()
	c, cancel := p.scope(caller)
	defer cancel()

	want, _ := caller.Deadline()
	got, ok := c.Deadline()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPageScopeCancelDoesNotCloseTab(t *testing.T) {
	tab, cancelTab := context.WithCancel(context.Background())
	defer cancelTab()
	p := &page{ctx: tab, cancel: cancelTab}

	_, cancel := p.scope(context.Background())
	cancel()

	assert.NoError(t, tab.Err())
}
