package attach

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/jvmtest"
)

func TestInstall(t *testing.T) {
	m := &Manager{}
	assert.False(t, m.Installed())
	_, err := m.VM()
	assert.ErrorIs(t, err, ErrNotInstalled)
	_, err = m.Env()
	assert.ErrorIs(t, err, ErrNotInstalled)

	vm := jvmtest.New()
	version, err := m.Install(vm)
	require.NoError(t, err)
	assert.Equal(t, jni.Version14, version)
	assert.True(t, m.Installed())

	got, err := m.VM()
	require.NoError(t, err)
	assert.Same(t, vm, got)
}

func TestInstallTwiceKeepsFirst(t *testing.T) {
	m := &Manager{}
	first := jvmtest.New()
	_, err := m.Install(first)
	require.NoError(t, err)

	version, err := m.Install(jvmtest.New())
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
	assert.Equal(t, jni.MinVersion, version)

	got, err := m.VM()
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestInstallNil(t *testing.T) {
	m := &Manager{}
	_, err := m.Install(nil)
	assert.ErrorIs(t, err, jni.ErrNullReference)
	assert.False(t, m.Installed())
}

func TestInstallRace(t *testing.T) {
	m := &Manager{}
	var (
		mu        sync.Mutex
		installed int
	)
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := m.Install(jvmtest.New())
			if err == nil {
				mu.Lock()
				installed++
				mu.Unlock()
				return nil
			}
			if errors.Is(err, ErrAlreadyInstalled) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, installed)
}

func TestEnvAttachesOnce(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m := &Manager{}
	vm := jvmtest.New()
	_, err := m.Install(vm)
	require.NoError(t, err)

	first, err := m.Env()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		env, err := m.Env()
		require.NoError(t, err)
		assert.Same(t, first, env)
	}
	assert.Equal(t, 1, vm.Threads())
}

func TestEnvFromNewThreads(t *testing.T) {
	m := &Manager{}
	vm := jvmtest.New()
	_, err := m.Install(vm)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			env, err := m.Env()
			if err != nil {
				return err
			}
			_, err = env.NewString("attached")
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, vm.Threads(), 4)
	assert.GreaterOrEqual(t, vm.Threads(), 1)
}

func TestMustEnvPanicsOnAttachFailure(t *testing.T) {
	m := &Manager{}
	vm := jvmtest.New()
	_, err := m.Install(vm)
	require.NoError(t, err)

	vm.SetAttachError(errors.New("no more threads"))
	assert.Panics(t, func() { m.MustEnv() })

	vm.SetAttachError(nil)
	assert.NotPanics(t, func() { m.MustEnv() })
}
