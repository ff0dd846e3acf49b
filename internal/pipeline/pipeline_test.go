package pipeline

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/collector"
	"github.com/rendis/leadtap/internal/engine/geo"
)

type fakeGeocoder struct {
	bound orb.Bound
	err   error
	calls []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, region string) (orb.Bound, error) {
	f.calls = append(f.calls, region)
	return f.bound, f.err
}

func TestResolveViewportBlank(t *testing.T) {
	g := &fakeGeocoder{}
	vp, err := ResolveViewport(context.Background(), g, "   ")
	require.NoError(t, err)
	assert.Nil(t, vp)
	assert.Empty(t, g.calls)
}

func TestResolveViewport(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{135.70, 34.95}, Max: orb.Point{135.80, 35.05}}
	g := &fakeGeocoder{bound: bound}

	vp, err := ResolveViewport(context.Background(), g, " Kyoto ")
	require.NoError(t, err)
	require.NotNil(t, vp)
	assert.Equal(t, []string{"Kyoto"}, g.calls)
	assert.Equal(t, geo.ViewportFor(bound), *vp)
}

func TestResolveViewportError(t *testing.T) {
	g := &fakeGeocoder{err: errors.New("no results")}
	_, err := ResolveViewport(context.Background(), g, "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `geocoding "Atlantis"`)
}

func TestTimingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		WaitTimeout:    3 * time.Second,
		ScrollSettle:   time.Second,
		DetailSettle:   500 * time.Millisecond,
		ScrollAttempts: 4,
	}
	tm := Timings(cfg)
	assert.Equal(t, 3*time.Second, tm.WaitTimeout)
	assert.Equal(t, time.Second, tm.ScrollSettle)
	assert.Equal(t, 500*time.Millisecond, tm.DetailSettle)
	assert.Equal(t, 4, tm.ScrollAttempts)
	assert.Equal(t, 5000, tm.ScrollDelta)
}

func TestOpenKeepsStartupCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := Open(ctx, &config.Config{Headless: true}, Options{Geocoder: &fakeGeocoder{}})
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, collector.ErrSession)
	assert.ErrorIs(t, err, context.Canceled)
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestOpenedPipelineOutlivesStartupContext(t *testing.T) {
	if testing.Short() || !chromeAvailable() {
		t.Skip("needs a local Chrome")
	}
	startup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	p, err := Open(startup, &config.Config{Headless: true}, Options{Geocoder: &fakeGeocoder{}})
	require.NoError(t, err)
	defer p.Close()
	cancel()

	page, err := p.session.NewPage(context.Background())
	require.NoError(t, err)
	assert.NoError(t, page.Close())
}
