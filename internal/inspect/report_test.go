package inspect

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/profile"
	"github.com/mattjoyce/hearth/internal/schedule"
)

func noop(*schedule.BuildContext) (int, error) { return 0, nil }

func fixture(t *testing.T) (*schedule.Resolved, *schedule.Resolved) {
	t.Helper()
	ic := schedule.NewInitContext[int]()
	ic.SetOwner("core")
	require.NoError(t, ic.Dispatch(schedule.Named("input"), noop))
	require.NoError(t, ic.Dispatch(schedule.Named("physics").RunAfter("input"), noop))
	ic.SetOwner("graphics")
	require.NoError(t, ic.Register(schedule.ThreadLocal, schedule.Named("render_setup").RunBefore("render"), noop))
	require.NoError(t, ic.DispatchThreadLocal(schedule.Named("render").RunAfter("physics"), noop))
	par, local, err := ic.ResolveAll()
	require.NoError(t, err)
	return par, local
}

func TestRenderSchedule(t *testing.T) {
	par, local := fixture(t)
	rep := BuildReport("boot-123", "", par, local)
	require.Len(t, rep.Groups, 2)
	assert.Equal(t, 2, rep.Groups[0].Waves)

	var buf bytes.Buffer
	RenderSchedule(&buf, rep)
	out := buf.String()

	assert.Contains(t, out, "Boot        : boot-123")
	assert.Contains(t, out, "parallel (2 unit(s), 2 wave(s)")
	assert.Contains(t, out, "thread_local (2 unit(s)")
	assert.Less(t, strings.Index(out, "render_setup"), strings.LastIndex(out, "render "))
	assert.Contains(t, out, "graphics")
}

func TestRenderDiagnostics(t *testing.T) {
	ic := schedule.NewInitContext[int]()
	ic.SetOwner("loop")
	require.NoError(t, ic.Dispatch(schedule.Named("a").RunAfter("b"), noop))
	require.NoError(t, ic.Dispatch(schedule.Named("b").RunAfter("a"), noop))
	require.NoError(t, ic.Dispatch(schedule.Named("c").RunAfter("ghost"), noop))
	_, _, err := ic.ResolveAll()
	require.Error(t, err)

	var buf bytes.Buffer
	require.True(t, RenderDiagnostics(&buf, err))
	out := buf.String()
	for _, want := range []string{"Waits for", "ghost", "loop", "parallel"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	assert.False(t, RenderDiagnostics(&buf, assert.AnError))
	assert.Empty(t, buf.String())
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	RenderHistory(&buf, nil)
	assert.Equal(t, "No schedules recorded.\n", buf.String())

	buf.Reset()
	RenderHistory(&buf, []history.Snapshot{{
		BootID:      "0123456789abcdef",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Affinity:    "parallel",
		Fingerprint: strings.Repeat("f", 64),
		Units: []schedule.Entry{
			{Descriptor: schedule.Named("input")},
			{Descriptor: schedule.Named("physics")},
		},
	}})
	out := buf.String()
	assert.Contains(t, out, "input > physics")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestRenderProfile(t *testing.T) {
	var buf bytes.Buffer
	RenderProfile(&buf, "b1", []profile.Total{{System: "physics", Invocations: 4, Total: 10 * time.Millisecond, Max: 4 * time.Millisecond}})
	out := buf.String()
	assert.Contains(t, out, "physics")
	assert.Contains(t, out, "10.000")
	assert.Contains(t, out, "2.500")
}

func TestJSONReport(t *testing.T) {
	par, local := fixture(t)
	out, err := JSON(BuildReport("b", "cfg", par, local))
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "cfg", decoded.ConfigHash)
	assert.Equal(t, "render_setup", decoded.Groups[1].Units[0].Name)
}
