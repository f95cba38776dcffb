package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/jvmtest"
	"github.com/opd-ai/safejni/native"
)

const testPackage = "net/maidsafe/"

// newTestEnv returns a bindings registry and an attached Env of a runtime
// that declares exactly the classes the registry expects.
func newTestEnv(t *testing.T) (*jvmtest.VM, *jvmtest.Env, *Registry) {
	t.Helper()
	reg := NewBindingsRegistry(testPackage)
	vm := jvmtest.New()
	for _, s := range reg.Schemas() {
		fields := make([]jvmtest.Field, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = jvmtest.Field{Name: f.Name, Sign: f.Sign}
		}
		vm.DefineClass(s.Class, fields...)
	}
	env, err := vm.Attach()
	require.NoError(t, err)
	require.NoError(t, env.PushLocalFrame(16))
	t.Cleanup(func() {
		env.PopLocalFrame()
		assert.Empty(t, vm.Violations())
	})
	return vm, env, reg
}

func roundTrip[N, M any](t *testing.T, env jni.Env, reg *Registry, v N) N {
	t.Helper()
	c := Must[N, M](reg)
	m, err := c.ToManaged(env, v)
	require.NoError(t, err)
	got, err := c.FromManaged(env, m)
	require.NoError(t, err)
	return got
}

func TestIntegerRoundTrip(t *testing.T) {
	_, env, reg := newTestEnv(t)

	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"int8", func(t *testing.T) { assert.Equal(t, int8(math.MinInt8), roundTrip[int8, int8](t, env, reg, math.MinInt8)) }},
		{"int16", func(t *testing.T) { assert.Equal(t, int16(-2), roundTrip[int16, int16](t, env, reg, -2)) }},
		{"int32", func(t *testing.T) { assert.Equal(t, int32(math.MaxInt32), roundTrip[int32, int32](t, env, reg, math.MaxInt32)) }},
		{"int64", func(t *testing.T) { assert.Equal(t, int64(math.MinInt64), roundTrip[int64, int64](t, env, reg, math.MinInt64)) }},
		{"uint8", func(t *testing.T) { assert.Equal(t, uint8(0xff), roundTrip[uint8, int8](t, env, reg, 0xff)) }},
		{"uint16", func(t *testing.T) { assert.Equal(t, uint16(0xfffe), roundTrip[uint16, int16](t, env, reg, 0xfffe)) }},
		{"uint32", func(t *testing.T) { assert.Equal(t, uint32(math.MaxUint32), roundTrip[uint32, int32](t, env, reg, math.MaxUint32)) }},
		{"uint64", func(t *testing.T) { assert.Equal(t, uint64(math.MaxUint64), roundTrip[uint64, int64](t, env, reg, math.MaxUint64)) }},
		{"uintptr", func(t *testing.T) { assert.Equal(t, uintptr(1<<40), roundTrip[uintptr, int64](t, env, reg, 1<<40)) }},
		{"bool", func(t *testing.T) { assert.True(t, roundTrip[bool, bool](t, env, reg, true)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestUnsignedIsBitPreserving(t *testing.T) {
	_, env, reg := newTestEnv(t)

	m, err := Must[uint32, int32](reg).ToManaged(env, math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), m)

	m8, err := Must[uint8, int8](reg).ToManaged(env, 0x80)
	require.NoError(t, err)
	assert.Equal(t, int8(math.MinInt8), m8)
}

func TestSigns(t *testing.T) {
	reg := NewBindingsRegistry(testPackage)

	assert.Equal(t, jni.ByteSign, Must[uint8, int8](reg).Sign())
	assert.Equal(t, jni.IntSign, Must[int32, int32](reg).Sign())
	assert.Equal(t, jni.LongSign, Must[uintptr, int64](reg).Sign())
	assert.Equal(t, jni.BoolSign, Must[bool, bool](reg).Sign())
	assert.Equal(t, jni.StringSign, Must[*byte, jni.Object](reg).Sign())
	assert.Equal(t, jni.ByteArraySign, Must[[32]byte, jni.Object](reg).Sign())
	assert.Equal(t, jni.IntArraySign, Must[[]int32, jni.Object](reg).Sign())
	assert.Equal(t, jni.Sign("Lnet/maidsafe/Key;"), Must[*native.Key, jni.Object](reg).Sign())
	assert.Equal(t, jni.Sign("[Lnet/maidsafe/Key;"), Must[[]native.Key, jni.Object](reg).Sign())
	assert.Equal(t, jni.Sign("Lnet/maidsafe/FfiResult;"), Must[*native.FfiResult, jni.Object](reg).Sign())
}

func TestLookupMissing(t *testing.T) {
	reg := NewRegistry()
	_, ok := Lookup[int32, int32](reg)
	assert.False(t, ok)
	assert.Panics(t, func() { Must[int32, int32](reg) })
}

func TestCString(t *testing.T) {
	_, env, _ := newTestEnv(t)
	before := native.Outstanding()

	p := native.CString("hello")
	s, err := CString{}.ToManaged(env, p)
	require.NoError(t, err)
	native.FreeString(p)

	text, err := env.GetString(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	back, err := CString{}.FromManaged(env, s)
	require.NoError(t, err)
	assert.Equal(t, "hello", native.GoString(back))
	native.FreeString(back)

	null, err := CString{}.ToManaged(env, nil)
	require.NoError(t, err)
	assert.Equal(t, jni.Null, null)

	nilp, err := CString{}.FromManaged(env, jni.Null)
	require.NoError(t, err)
	assert.Nil(t, nilp)

	assert.Equal(t, before, native.Outstanding())
}

func TestOwnedString(t *testing.T) {
	_, env, _ := newTestEnv(t)
	before := native.Outstanding()

	s := NewOwnedString("locator")
	obj, err := OwnedCString{}.ToManaged(env, s)
	require.NoError(t, err)
	s.Free()
	s.Free()
	assert.Nil(t, s.Ptr())

	owned, err := OwnedCString{}.FromManaged(env, obj)
	require.NoError(t, err)
	assert.Equal(t, "locator", owned.String())
	owned.Free()

	assert.Equal(t, before, native.Outstanding())
}

func TestFixedBytes(t *testing.T) {
	_, env, reg := newTestEnv(t)

	t.Run("8", func(t *testing.T) {
		v := [8]byte{0, 1, 2, 3, 4, 5, 6, 255}
		assert.Equal(t, v, roundTrip[[8]byte, jni.Object](t, env, reg, v))
	})
	t.Run("signed 8", func(t *testing.T) {
		v := [8]int8{-1, -128, 127, 0, 1, 2, 3, 4}
		assert.Equal(t, v, roundTrip[[8]int8, jni.Object](t, env, reg, v))
	})
	t.Run("24", func(t *testing.T) {
		var v [24]byte
		for i := range v {
			v[i] = byte(i * 3)
		}
		assert.Equal(t, v, roundTrip[[24]byte, jni.Object](t, env, reg, v))
	})
	t.Run("32", func(t *testing.T) {
		var v [32]byte
		for i := range v {
			v[i] = byte(255 - i)
		}
		m, err := Must[[32]byte, jni.Object](reg).ToManaged(env, v)
		require.NoError(t, err)
		n, err := env.GetArrayLength(m)
		require.NoError(t, err)
		assert.Equal(t, 32, n)
		assert.Equal(t, v, roundTrip[[32]byte, jni.Object](t, env, reg, v))
	})
	t.Run("64", func(t *testing.T) {
		var v [64]byte
		for i := range v {
			v[i] = byte(i)
		}
		assert.Equal(t, v, roundTrip[[64]byte, jni.Object](t, env, reg, v))
	})
	t.Run("wrong length", func(t *testing.T) {
		arr, err := env.NewByteArray(make([]byte, 7))
		require.NoError(t, err)
		_, err = FixedBytes[[8]byte]{}.FromManaged(env, arr)
		assert.Error(t, err)
	})
	t.Run("null", func(t *testing.T) {
		_, err := FixedBytes[[24]byte]{}.FromManaged(env, jni.Null)
		assert.ErrorIs(t, err, jni.ErrNullReference)
	})
}

func TestBuffers(t *testing.T) {
	_, env, reg := newTestEnv(t)

	assert.Equal(t, []byte{9, 8, 7}, roundTrip[[]byte, jni.Object](t, env, reg, []byte{9, 8, 7}))
	assert.Equal(t, []int32{10, 20, 30}, roundTrip[[]int32, jni.Object](t, env, reg, []int32{10, 20, 30}))

	empty, err := Ints{}.ToManaged(env, nil)
	require.NoError(t, err)
	require.NotEqual(t, jni.Null, empty)
	n, err := env.GetArrayLength(empty)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := Bytes{}.FromManaged(env, jni.Null)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStructRoundTrip(t *testing.T) {
	_, env, reg := newTestEnv(t)

	in := native.AppInfo{ID: 7, Name: native.CString("a"), Key: native.Key{Bytes: [8]int8{1, 2, 3, 4, 5, 6, 7, 8}}}
	defer native.FreeString(in.Name)
	before := native.Outstanding()

	c := Must[native.AppInfo, jni.Object](reg)
	obj, err := c.ToManaged(env, in)
	require.NoError(t, err)

	id, err := env.GetField(obj, "id", jni.IntSign)
	require.NoError(t, err)
	assert.Equal(t, int32(7), id.Int())

	out, err := c.FromManaged(env, obj)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Key, out.Key)
	assert.Equal(t, "a", native.GoString(out.Name))
	native.FreeString(out.Name)

	assert.Equal(t, before, native.Outstanding())
}

func TestStructNullName(t *testing.T) {
	_, env, reg := newTestEnv(t)

	c := Must[native.FfiResult, jni.Object](reg)
	obj, err := c.ToManaged(env, native.FfiResult{ErrorCode: -3})
	require.NoError(t, err)

	msg, err := env.GetField(obj, "error", jni.StringSign)
	require.NoError(t, err)
	assert.Equal(t, jni.Null, msg.Object())

	out, err := c.FromManaged(env, obj)
	require.NoError(t, err)
	assert.Equal(t, native.FfiResult{ErrorCode: -3}, out)

	_, err = c.FromManaged(env, jni.Null)
	assert.ErrorIs(t, err, jni.ErrNullReference)
}

func TestStructReleasesOnError(t *testing.T) {
	_, env, reg := newTestEnv(t)
	c := Must[native.AppInfo, jni.Object](reg)

	name := native.CString("a")
	defer native.FreeString(name)
	good, err := c.ToManaged(env, native.AppInfo{ID: 1, Name: name})
	require.NoError(t, err)
	bad, err := c.ToManaged(env, native.AppInfo{ID: 2, Name: name})
	require.NoError(t, err)
	require.NoError(t, env.SetField(bad, "key", jni.ClassSign(testPackage+KeyClass), jni.ObjectValue(jni.Null)))
	before := native.Outstanding()

	out, err := c.FromManaged(env, bad)
	assert.ErrorIs(t, err, jni.ErrNullReference)
	assert.Nil(t, out.Name)
	assert.Equal(t, before, native.Outstanding(), "name copied before the key failed is freed")

	arr, err := env.NewObjectArray(2, testPackage+AppInfoClass)
	require.NoError(t, err)
	require.NoError(t, env.SetObjectArrayElement(arr, 0, good))
	require.NoError(t, env.SetObjectArrayElement(arr, 1, bad))
	infos := ObjectArray[native.AppInfo](testPackage+AppInfoClass, c)
	_, err = infos.FromManaged(env, arr)
	assert.ErrorIs(t, err, jni.ErrNullReference)
	assert.Equal(t, before, native.Outstanding(), "elements decoded before the failure are freed")

	ok, err := c.FromManaged(env, good)
	require.NoError(t, err)
	assert.Equal(t, before+1, native.Outstanding())
	Release(c, ok)
	assert.Equal(t, before, native.Outstanding())
}

func TestPointer(t *testing.T) {
	_, env, reg := newTestEnv(t)

	c := Must[*native.Key, jni.Object](reg)
	null, err := c.ToManaged(env, nil)
	require.NoError(t, err)
	assert.Equal(t, jni.Null, null)

	k := &native.Key{Bytes: [8]int8{0, 1, 2, 3, 4, 5, 6, 7}}
	got := roundTrip[*native.Key, jni.Object](t, env, reg, k)
	require.NotNil(t, got)
	assert.Equal(t, *k, *got)
}

func TestObjectArray(t *testing.T) {
	_, env, reg := newTestEnv(t)
	base := env.LocalRefs()

	keys := make([]native.Key, 5)
	for i := range keys {
		for j := range keys[i].Bytes {
			keys[i].Bytes[j] = int8(i)
		}
	}
	assert.Equal(t, keys, roundTrip[[]native.Key, jni.Object](t, env, reg, keys))

	c := Must[[]native.Key, jni.Object](reg)
	arr, err := c.ToManaged(env, nil)
	require.NoError(t, err)
	n, err := env.GetArrayLength(arr)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Only the two arrays remain; element references are released as the
	// elements are stored or read.
	assert.Equal(t, base+2, env.LocalRefs())
}

func TestVerify(t *testing.T) {
	reg := NewBindingsRegistry(testPackage)

	t.Run("matching schema", func(t *testing.T) {
		_, env, _ := newTestEnv(t)
		assert.NoError(t, Verify(env, reg))
	})

	t.Run("every mismatch reported", func(t *testing.T) {
		vm := jvmtest.New()
		vm.DefineClass(testPackage+KeyClass, jvmtest.Field{Name: "bytes", Sign: jni.IntArraySign})
		vm.DefineClass(testPackage+FfiResultClass, jvmtest.Field{Name: "errorCode", Sign: jni.IntSign})
		env, err := vm.Attach()
		require.NoError(t, err)

		err = Verify(env, reg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Key: missing field bytes [B")
		assert.Contains(t, err.Error(), "AppInfo: missing field id I")
		assert.Contains(t, err.Error(), "AppInfo: missing field key Lnet/maidsafe/Key;")
		assert.Contains(t, err.Error(), "FfiResult: missing field error Ljava/lang/String;")
		assert.NotContains(t, err.Error(), "errorCode")
	})
}
