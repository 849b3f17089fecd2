package perf

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/ui"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/timing"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "fps --", Label(0))
	assert.Equal(t, "fps 59.9", Label(59.94))
}

func TestWidgetDrawn(t *testing.T) {
	res := resource.New()
	eng, err := engine.New(engine.Options{
		Resources: res,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, New(ui.New(graphics.New(0, 0))))
	require.NoError(t, err)
	assert.Equal(t, []string{graphics.Name, ui.Name, Name}, eng.Modules())

	info, ok := resource.Get[timing.FPSInfo](res)
	require.True(t, ok)
	info.FPS = 30

	require.NoError(t, eng.Tick())
	surface, _ := resource.Get[graphics.Surface](res)
	last := surface.LastFrame()
	require.Len(t, last, 2)
	assert.Equal(t, WidgetID, last[1].Label)
}
