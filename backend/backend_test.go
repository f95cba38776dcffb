package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/bridge/bridgetest"
	"github.com/opd-ai/safejni/native"
)

const waitTimeout = 5 * time.Second

var appKey = native.Key{Bytes: [native.KeySize]int8{1, 2, 3, 4, 5, 6, 7, 8}}

func allBytes(b int8) native.Key {
	var k native.Key
	for i := range k.Bytes {
		k.Bytes[i] = b
	}
	return k
}

func okResult() bridgetest.Result { return bridgetest.Result{Code: CodeOK, Error: "OK"} }

func TestOperations(t *testing.T) {
	tests := []struct {
		name  string
		call  func(h *bridgetest.Harness)
		class string
		want  []any
	}{
		{
			name:  "register_app",
			call:  func(h *bridgetest.Harness) { h.Bridge.RegisterApp(h.Env, h.AppInfo(7, "a", appKey), h.Callback(bridge.CallbackClass)) },
			class: bridge.CallbackClass,
		},
		{
			name:  "get_app_id",
			call:  func(h *bridgetest.Harness) { h.Bridge.GetAppID(h.Env, h.AppInfo(7, "a", appKey), h.Callback(bridge.CallbackIntClass)) },
			class: bridge.CallbackIntClass,
			want:  []any{int32(7)},
		},
		{
			name:  "get_app_name",
			call:  func(h *bridgetest.Harness) { h.Bridge.GetAppName(h.Env, h.AppInfo(7, "a", appKey), h.Callback(bridge.CallbackStringClass)) },
			class: bridge.CallbackStringClass,
			want:  []any{"a"},
		},
		{
			name:  "get_app_key",
			call:  func(h *bridgetest.Harness) { h.Bridge.GetAppKey(h.Env, h.AppInfo(7, "a", appKey), h.Callback(bridge.CallbackKeyClass)) },
			class: bridge.CallbackKeyClass,
			want:  []any{appKey},
		},
		{
			name:  "get_app_info",
			call:  func(h *bridgetest.Harness) { h.Bridge.GetAppInfo(h.Env, h.AppInfo(7, "a", appKey), h.Callback(bridge.CallbackIntStringKeyClass)) },
			class: bridge.CallbackIntStringKeyClass,
			want:  []any{int32(7), "a", appKey},
		},
		{
			name:  "random_numbers",
			call:  func(h *bridgetest.Harness) { h.Bridge.RandomNumbers(h.Env, h.Callback(bridge.CallbackArrayIntClass)) },
			class: bridge.CallbackArrayIntClass,
			want:  []any{[]int32{1, 1, 2, 3, 5, 8, 13, 21}},
		},
		{
			name:  "random_keys",
			call:  func(h *bridgetest.Harness) { h.Bridge.RandomKeys(h.Env, h.Callback(bridge.CallbackArrayKeyClass)) },
			class: bridge.CallbackArrayKeyClass,
			want:  []any{[]native.Key{allBytes(0), allBytes(1), allBytes(2), allBytes(3), allBytes(4)}},
		},
		{
			name: "verify_keys",
			call: func(h *bridgetest.Harness) {
				h.Bridge.VerifyKeys(h.Env, bridgetest.Value(h, []native.Key{appKey}), h.Callback(bridge.CallbackClass))
			},
			class: bridge.CallbackClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := New(Options{})
			h := bridgetest.New(t, lib)

			tt.call(h)
			calls := h.WaitInvocations(1, waitTimeout)
			lib.Wait()

			require.Len(t, calls, 1)
			assert.Equal(t, bridgetest.Package+tt.class, calls[0].Class)
			assert.Equal(t, okResult(), calls[0].Result)
			assert.Equal(t, tt.want, calls[0].Args)
			h.AssertReleased()
		})
	}
}

func TestVerifySignature(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bridgetest.Result
	}{
		{name: "valid", data: []byte{0, 0, 3}, want: okResult()},
		{name: "all zero", data: make([]byte, 64), want: bridgetest.Result{Code: CodeInvalidSignature, Error: "Invalid signature"}},
		{name: "empty", data: []byte{}, want: bridgetest.Result{Code: CodeInvalidSignature, Error: "Invalid signature"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := New(Options{Synchronous: true})
			h := bridgetest.New(t, lib)

			h.Bridge.VerifySignature(h.Env, bridgetest.Value(h, tt.data), h.Callback(bridge.CallbackClass))
			calls := h.Invocations()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0].Result)
			h.AssertReleased()
		})
	}
}

func TestCreateAccount(t *testing.T) {
	lib := New(Options{DisconnectDelay: 10 * time.Millisecond})
	h := bridgetest.New(t, lib)

	h.Bridge.CreateAccount(h.Env, h.String("locator"), h.String("password"),
		h.Callback(bridge.CallbackAppInfoClass), h.Callback(bridge.CallbackClass))
	calls := h.WaitInvocations(2, waitTimeout)
	lib.Wait()

	require.Len(t, calls, 2)
	assert.Equal(t, bridgetest.Package+bridge.CallbackAppInfoClass, calls[0].Class)
	assert.Equal(t, []any{bridgetest.AppInfo{ID: AccountID, Name: "locator:password", Key: AccountKey}}, calls[0].Args)
	assert.Equal(t, bridgetest.Package+bridge.CallbackClass, calls[1].Class)
	assert.Equal(t, calls[0].Thread, calls[1].Thread, "both callbacks run on the operation's thread")
	assert.NotEqual(t, h.Env.ThreadID(), calls[0].Thread)
	h.AssertReleased()
}

func TestManyConcurrentOperations(t *testing.T) {
	const n = 32
	lib := New(Options{})
	h := bridgetest.New(t, lib)

	for i := 0; i < n; i++ {
		h.Bridge.GetAppID(h.Env, h.AppInfo(int32(i), "app", appKey), h.Callback(bridge.CallbackIntClass))
		h.Bridge.CreateAccount(h.Env, h.String("l"), h.String("p"),
			h.Callback(bridge.CallbackAppInfoClass), h.Callback(bridge.CallbackClass))
	}
	calls := h.WaitInvocations(3*n, waitTimeout)
	lib.Wait()

	ids := make(map[int32]bool)
	for _, c := range calls {
		if c.Class == bridgetest.Package+bridge.CallbackIntClass {
			ids[c.Args[0].(int32)] = true
		}
	}
	assert.Len(t, ids, n)
	assert.Empty(t, h.VM.Uncaught())
	h.AssertReleased()
}
