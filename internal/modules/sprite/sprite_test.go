package sprite

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/input"
	"github.com/mattjoyce/hearth/internal/modules/physics"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

func TestOneDrawPerBody(t *testing.T) {
	res := resource.New()
	opts := physics.DefaultOptions()
	opts.Bodies = 3
	m := New(graphics.New(0, 0), physics.New(opts, input.New(nil)), nil)

	eng, err := engine.New(engine.Options{
		Resources: res,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, m)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{graphics.DepRenderSetup, Name, graphics.DepRenderTeardown},
		eng.Plan().Schedule(schedule.ThreadLocal).Names())

	require.NoError(t, eng.Tick())

	surface, _ := resource.Get[graphics.Surface](res)
	world, _ := resource.Get[physics.World](res)
	last := surface.LastFrame()
	require.Len(t, last, 3)
	for i, dc := range last {
		assert.Equal(t, "sprite", dc.Kind)
		assert.Equal(t, graphics.OrderOpaque, dc.Order)
		// No camera: identity projection.
		assert.InDeltaSlice(t, world.Bodies[i].Position[:], dc.Pos[:], 1e-9)
	}
}

func TestWithoutPhysicsDrawsNothing(t *testing.T) {
	res := resource.New()
	eng, err := engine.New(engine.Options{
		Resources: res,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, New(graphics.New(0, 0)))
	require.NoError(t, err)
	require.NoError(t, eng.Tick())

	surface, _ := resource.Get[graphics.Surface](res)
	assert.Empty(t, surface.LastFrame())
}
