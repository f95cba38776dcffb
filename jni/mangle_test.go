package jni

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMangleSymbol(t *testing.T) {
	tests := []struct {
		class  string
		method string
		want   string
	}{
		{"NativeBindings", "getAppId", "Java_NativeBindings_getAppId"},
		{"net/maidsafe/NativeBindings", "registerApp", "Java_net_maidsafe_NativeBindings_registerApp"},
		{"net.maidsafe.NativeBindings", "registerApp", "Java_net_maidsafe_NativeBindings_registerApp"},
		{"my_pkg/Native", "do_it", "Java_my_1pkg_Native_do_1it"},
		{"p/Ünï", "käse", "Java_p__000dcn_000ef_k_000e4se"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MangleSymbol(tt.class, tt.method))
		})
	}
}

func TestMangleOverloadedSymbol(t *testing.T) {
	got := MangleOverloadedSymbol("net/maidsafe/NativeBindings", "verifySignature", "([BLnet/maidsafe/Callback;)V")
	assert.Equal(t, "Java_net_maidsafe_NativeBindings_verifySignature___3BLnet_maidsafe_Callback_2", got)
}
