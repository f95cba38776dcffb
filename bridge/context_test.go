package bridge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/jvmtest"
	"github.com/opd-ai/safejni/native"
)

func newRefs(t *testing.T, vm *jvmtest.VM, env jni.Env, k int) ([]GlobalRef, []jni.Object) {
	t.Helper()
	vm.DefineClass("Callback")
	refs := make([]GlobalRef, k)
	objs := make([]jni.Object, k)
	for i := range refs {
		local, err := env.NewObject("Callback", "()V")
		require.NoError(t, err)
		refs[i], err = NewGlobalRef(env, local)
		require.NoError(t, err)
		objs[i] = refs[i].Object()
	}
	return refs, objs
}

func TestGlobalRefLeakAdopt(t *testing.T) {
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)
	refs, _ := newRefs(t, vm, env, 1)
	ref := refs[0]

	assert.Equal(t, 1, vm.GlobalRefs())
	assert.Zero(t, env.LocalRefs(), "local reference is deleted on promotion")

	p := ref.Leak()
	assert.False(t, ref.Valid())
	ref.Release(env)
	assert.Equal(t, 1, vm.GlobalRefs(), "a leaked reference stays pinned")

	back := Adopt(p)
	assert.True(t, back.Valid())
	back.Release(env)
	back.Release(env)
	assert.Zero(t, vm.GlobalRefs())
	assert.Empty(t, vm.Violations())
}

func TestNewGlobalRefNull(t *testing.T) {
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)

	_, err = NewGlobalRef(env, jni.Null)
	assert.ErrorIs(t, err, jni.ErrNullReference)
	assert.Zero(t, vm.GlobalRefs())
}

func TestSingleContext(t *testing.T) {
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)
	refs, objs := newRefs(t, vm, env, 1)

	ctx := newSingleContext(refs[0])
	ref := takeSingle(ctx)
	assert.Equal(t, objs[0], ref.Object())
	ref.Release(env)
	assert.Zero(t, vm.GlobalRefs())
}

func TestMultiContextOrder(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{name: "in order", order: []int{0, 1}},
		{name: "reversed", order: []int{1, 0}},
		{name: "three slots", order: []int{2, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := jvmtest.New()
			env, err := vm.Attach()
			require.NoError(t, err)
			base := native.Outstanding()
			refs, objs := newRefs(t, vm, env, len(tt.order))

			ctx := newMultiContext(refs)
			assert.Equal(t, base+1, native.Outstanding())
			for n, i := range tt.order {
				ref, err := takeSlot(ctx, i)
				require.NoError(t, err)
				assert.Equal(t, objs[i], ref.Object())
				ref.Release(env)

				if n < len(tt.order)-1 {
					assert.Equal(t, base+1, native.Outstanding(), "context released early")
					assert.Equal(t, len(tt.order)-n-1, vm.GlobalRefs())
				}
			}
			assert.Equal(t, base, native.Outstanding())
			assert.Zero(t, vm.GlobalRefs())
			assert.Empty(t, vm.Violations())
		})
	}
}

func TestMultiContextTakenTwice(t *testing.T) {
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)
	base := native.Outstanding()
	refs, _ := newRefs(t, vm, env, 2)

	ctx := newMultiContext(refs)
	ref, err := takeSlot(ctx, 0)
	require.NoError(t, err)
	ref.Release(env)

	_, err = takeSlot(ctx, 0)
	assert.Error(t, err)
	_, err = takeSlot(ctx, 5)
	assert.Error(t, err)

	ref, err = takeSlot(ctx, 1)
	require.NoError(t, err)
	ref.Release(env)
	assert.Equal(t, base, native.Outstanding())
}

func TestMultiContextPartial(t *testing.T) {
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)
	base := native.Outstanding()
	refs, _ := newRefs(t, vm, env, 2)

	ctx := newMultiContext(refs)
	ref, err := takeSlot(ctx, 1)
	require.NoError(t, err)
	ref.Release(env)

	assert.Equal(t, base+1, native.Outstanding())
	assert.Equal(t, 1, vm.GlobalRefs())

	ref, err = takeSlot(ctx, 0)
	require.NoError(t, err)
	ref.Release(env)
}

func TestMultiContextNil(t *testing.T) {
	_, err := takeSlot(nil, 0)
	assert.ErrorIs(t, err, jni.ErrNullReference)
}

func TestMultiContextConcurrentTakes(t *testing.T) {
	const slots = 8
	vm := jvmtest.New()
	env, err := vm.Attach()
	require.NoError(t, err)
	base := native.Outstanding()

	for round := 0; round < 100; round++ {
		refs, objs := newRefs(t, vm, env, slots)
		ctx := newMultiContext(refs)

		taken := make([]jni.Object, slots)
		var g errgroup.Group
		for i := 0; i < slots; i++ {
			i := i
			g.Go(func() error {
				ref, err := takeSlot(ctx, i)
				if err != nil {
					return fmt.Errorf("slot %d: %w", i, err)
				}
				taken[i] = ref.Object()
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, objs, taken)
		for _, obj := range taken {
			env.DeleteGlobalRef(obj)
		}
		require.Equal(t, base, native.Outstanding(), "round %d", round)
	}
	assert.Zero(t, vm.GlobalRefs())
	assert.Empty(t, vm.Violations())
}
