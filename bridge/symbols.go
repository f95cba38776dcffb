package bridge

import (
	"github.com/opd-ai/safejni/jni"
)

// Managed class names, relative to the class package.
const (
	BindingsClass             = "NativeBindings"
	CallbackClass             = "Callback"
	CallbackIntClass          = "Callback_int"
	CallbackStringClass       = "Callback_String"
	CallbackKeyClass          = "Callback_Key"
	CallbackArrayIntClass     = "Callback_array_int"
	CallbackArrayKeyClass     = "Callback_array_Key"
	CallbackIntStringKeyClass = "Callback_int_String_Key"
	CallbackAppInfoClass      = "Callback_AppInfo"
)

// Symbol describes one static native method of the bindings class.
type Symbol struct {
	Method string   `yaml:"method"`
	Sign   jni.Sign `yaml:"sign"`
	Export string   `yaml:"export"`
}

// Callback describes the method the bridge invokes on one callback class.
type Callback struct {
	Class  string   `yaml:"class"`
	Method string   `yaml:"method"`
	Sign   jni.Sign `yaml:"sign"`
}

func (b *Bridge) class(name string) jni.Sign { return jni.ClassSign(b.pkg + name) }

// Symbols returns the native methods of the bindings class with their
// descriptors and exported symbol names.
func (b *Bridge) Symbols() []Symbol {
	bindings := b.pkg + BindingsClass
	app := b.appInfoIn.Sign()
	str := b.str.Sign()
	methods := []struct {
		name string
		args []jni.Sign
	}{
		{"registerApp", []jni.Sign{app, b.class(CallbackClass)}},
		{"getAppId", []jni.Sign{app, b.class(CallbackIntClass)}},
		{"getAppName", []jni.Sign{app, b.class(CallbackStringClass)}},
		{"getAppKey", []jni.Sign{app, b.class(CallbackKeyClass)}},
		{"randomNumbers", []jni.Sign{b.class(CallbackArrayIntClass)}},
		{"randomKeys", []jni.Sign{b.class(CallbackArrayKeyClass)}},
		{"getAppInfo", []jni.Sign{app, b.class(CallbackIntStringKeyClass)}},
		{"createAccount", []jni.Sign{str, str, b.class(CallbackAppInfoClass), b.class(CallbackClass)}},
		{"verifySignature", []jni.Sign{b.bytes.Sign(), b.class(CallbackClass)}},
		{"verifyKeys", []jni.Sign{b.keys.Sign(), b.class(CallbackClass)}},
	}
	out := make([]Symbol, len(methods))
	for i, m := range methods {
		out[i] = Symbol{
			Method: m.name,
			Sign:   jni.FuncSign(m.args, jni.VoidSign),
			Export: jni.MangleSymbol(bindings, m.name),
		}
	}
	return out
}

// Callbacks returns the callback classes and the descriptor of the method
// the trampolines call on each.
func (b *Bridge) Callbacks() []Callback {
	res := b.result.Sign()
	classes := []struct {
		name string
		args []jni.Sign
	}{
		{CallbackClass, []jni.Sign{res}},
		{CallbackIntClass, []jni.Sign{res, b.i32.Sign()}},
		{CallbackStringClass, []jni.Sign{res, b.str.Sign()}},
		{CallbackKeyClass, []jni.Sign{res, b.key.Sign()}},
		{CallbackArrayIntClass, []jni.Sign{res, b.ints.Sign()}},
		{CallbackArrayKeyClass, []jni.Sign{res, b.keys.Sign()}},
		{CallbackIntStringKeyClass, []jni.Sign{res, b.i32.Sign(), b.str.Sign(), b.key.Sign()}},
		{CallbackAppInfoClass, []jni.Sign{res, b.appInfo.Sign()}},
	}
	out := make([]Callback, 0, len(classes))
	for _, c := range classes {
		out = append(out, Callback{
			Class:  b.pkg + c.name,
			Method: b.method,
			Sign:   jni.FuncSign(c.args, jni.VoidSign),
		})
	}
	return out
}
