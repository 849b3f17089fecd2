package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/resource"
)

type gravity struct{ Y float64 }

func nameFactory(calls *[]string) Factory[string] {
	return func(bc *BuildContext) (string, error) {
		*calls = append(*calls, bc.Name)
		return bc.Affinity.String() + ":" + bc.Name, nil
	}
}

func TestDispatchRestrictedFields(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string

	err := ctx.Dispatch(Named("physics").WithPriority(3), nameFactory(&calls))
	assert.ErrorIs(t, err, ErrRestrictedField)

	err = ctx.Dispatch(Named("physics").RunBefore("render"), nameFactory(&calls))
	assert.ErrorIs(t, err, ErrRestrictedField)

	require.NoError(t, ctx.Dispatch(Named("physics").RunAfter("input"), nameFactory(&calls)))
	assert.Equal(t, 1, ctx.Group(Parallel).Len())

	// The raw surface accepts everything.
	require.NoError(t, ctx.Register(Parallel, Named("prefetch").WithPriority(-1).RunBefore("physics"), nameFactory(&calls)))
	require.NoError(t, ctx.DispatchThreadLocal(Named("render_setup").WithPriority(100), nameFactory(&calls)))
}

func TestRegisterValidation(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string

	err := ctx.Register(Affinity(9), Named("x"), nameFactory(&calls))
	assert.ErrorIs(t, err, ErrInvalidAffinity)

	err = ctx.Register(Parallel, Named("x"), nil)
	assert.ErrorIs(t, err, ErrNilFactory)

	err = ctx.Register(Parallel, Named("x").RunAfter(""), nameFactory(&calls))
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	err = ctx.Register(ThreadLocal, Anonymous().RunBefore(""), nameFactory(&calls))
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	assert.Equal(t, 0, ctx.Group(Parallel).Len())
	assert.Equal(t, 0, ctx.Group(ThreadLocal).Len())
}

func TestDuplicateNameAcrossGroups(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string

	ctx.SetOwner("graphics")
	require.NoError(t, ctx.DispatchThreadLocal(Named("render_setup"), nameFactory(&calls)))

	ctx.SetOwner("imposter")
	err := ctx.Dispatch(Named("render_setup"), nameFactory(&calls))

	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "render_setup", dup.Name)
	assert.Equal(t, Parallel, dup.Affinity)
	assert.Equal(t, ThreadLocal, dup.First)
	assert.Equal(t, "graphics", dup.FirstOwner)
	assert.Equal(t, "imposter", dup.Owner)

	// Anonymous units never collide.
	require.NoError(t, ctx.Dispatch(Anonymous(), nameFactory(&calls)))
	require.NoError(t, ctx.Dispatch(Anonymous(), nameFactory(&calls)))
}

func TestCommitBuildsInResolvedOrder(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	f := nameFactory(&calls)

	require.NoError(t, ctx.Dispatch(Named("render").RunAfter("physics"), f))
	require.NoError(t, ctx.Dispatch(Named("physics").RunAfter("input"), f))
	require.NoError(t, ctx.Dispatch(Named("input"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("render_teardown").RunAfter("render_setup"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("render_setup").WithPriority(100).RunBefore("render_teardown").RunAfter("render"), f))

	plan, err := ctx.Commit(resource.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"input", "physics", "render", "render_setup", "render_teardown"}, calls)
	assert.Equal(t, []string{"parallel:input", "parallel:physics", "parallel:render"}, plan.Units(Parallel))
	assert.Equal(t, []string{"thread_local:render_setup", "thread_local:render_teardown"}, plan.Units(ThreadLocal))
	assert.Equal(t, []string{"input", "physics", "render"}, plan.Schedule(Parallel).Names())
	assert.Equal(t, 5, plan.Len())
	assert.True(t, ctx.Sealed())
}

func TestCommitSeals(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	require.NoError(t, ctx.Dispatch(Named("input"), nameFactory(&calls)))

	_, err := ctx.Commit(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, ctx.Dispatch(Named("late"), nameFactory(&calls)), ErrSealed)
	assert.ErrorIs(t, ctx.DispatchThreadLocal(Named("late"), nameFactory(&calls)), ErrSealed)

	_, err = ctx.Commit(nil)
	assert.ErrorIs(t, err, ErrSealed)
	assert.Equal(t, []string{"input"}, calls)
}

func TestCommitResolveFailureBuildsNothing(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	f := nameFactory(&calls)
	require.NoError(t, ctx.Dispatch(Named("input"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("a").RunAfter("b"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("b").RunAfter("a"), f))

	plan, err := ctx.Commit(nil)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ErrUnresolvable)
	assert.Empty(t, calls)
}

func TestCommitFactoryError(t *testing.T) {
	ctx := NewInitContext[string]()
	boom := errors.New("no device")
	var calls []string

	ctx.SetOwner("graphics")
	require.NoError(t, ctx.Dispatch(Named("ok"), nameFactory(&calls)))
	require.NoError(t, ctx.DispatchThreadLocal(Named("render_setup"), func(*BuildContext) (string, error) {
		return "", boom
	}))

	plan, err := ctx.Commit(nil)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `build render_setup (module "graphics")`)
}

func TestBuildContext(t *testing.T) {
	ctx := NewInitContext[float64]()
	res := resource.New()
	resource.Insert(res, &gravity{Y: -9.8})

	ctx.SetOwner("physics")
	require.NoError(t, ctx.Dispatch(Named("input"), func(*BuildContext) (float64, error) { return 0, nil }))
	require.NoError(t, ctx.Dispatch(Named("physics").RunAfter("input"), func(bc *BuildContext) (float64, error) {
		assert.Equal(t, "physics", bc.Name)
		assert.Equal(t, "physics", bc.Owner)
		assert.Equal(t, []string{"input"}, bc.After)
		assert.Equal(t, Parallel, bc.Affinity)
		g, ok := resource.Get[gravity](bc.Resources)
		require.True(t, ok)
		return g.Y, nil
	}))

	plan, err := ctx.Commit(res)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -9.8}, plan.Units(Parallel))
}

func TestCrossGroupSatisfaction(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	f := nameFactory(&calls)

	require.NoError(t, ctx.DispatchThreadLocal(Named("render_setup").RunAfter("camera"), f))
	require.NoError(t, ctx.Dispatch(Named("camera"), f))

	p, tl, err := ctx.ResolveAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"camera"}, p.Names())
	assert.Equal(t, []string{"render_setup"}, tl.Names())
	assert.False(t, ctx.Sealed())

	// Before-constraints stay inside their group.
	require.NoError(t, ctx.DispatchThreadLocal(Named("upload").RunBefore("camera"), f))
	_, _, err = ctx.ResolveAll()
	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindDanglingBefore, re.Kind)
	assert.Equal(t, "thread_local", re.Group)
	assert.Equal(t, []string{"camera"}, re.Diags[0].CrossGroupBefore)
	assert.Contains(t, err.Error(), "registered in the other group")
	assert.NotContains(t, err.Error(), "unknown [camera]")
}

func TestResolveAllJoinsGroupErrors(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	f := nameFactory(&calls)

	require.NoError(t, ctx.Dispatch(Named("physics").RunAfter("ghost"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("a").RunAfter("b"), f))
	require.NoError(t, ctx.DispatchThreadLocal(Named("b").RunAfter("a"), f))

	_, _, err := ctx.ResolveAll()
	require.Error(t, err)

	errs := ResolveErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "parallel", errs[0].Group)
	assert.Equal(t, "thread_local", errs[1].Group)
	assert.Nil(t, ResolveErrors(nil))
}

func TestPlanParallelWaves(t *testing.T) {
	ctx := NewInitContext[string]()
	var calls []string
	f := nameFactory(&calls)

	require.NoError(t, ctx.Dispatch(Named("input"), f))
	require.NoError(t, ctx.Dispatch(Named("audio"), f))
	require.NoError(t, ctx.Dispatch(Named("physics").RunAfter("input"), f))

	plan, err := ctx.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"parallel:input", "parallel:audio"},
		{"parallel:physics"},
	}, plan.ParallelWaves())

	units := plan.Units(Parallel)
	units[0] = "mutated"
	assert.Equal(t, "parallel:input", plan.Units(Parallel)[0])
}

func TestDescriptorBuildersDoNotAlias(t *testing.T) {
	base := Named("a").RunAfter("x")
	left := base.RunAfter("y")
	right := base.RunAfter("z")

	assert.Equal(t, []string{"x"}, base.After)
	assert.Equal(t, []string{"x", "y"}, left.After)
	assert.Equal(t, []string{"x", "z"}, right.After)
	assert.False(t, base.IsAnonymous())
	assert.True(t, Anonymous().IsAnonymous())
}
