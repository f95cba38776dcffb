// Package jvmtest is an in-memory managed runtime implementing jni.VM and
// jni.Env, for exercising the bridge without a JVM.
//
// It models what the bridge relies on: classes with declared fields and a
// zero-argument constructor, strings and primitive/object arrays, callback
// classes whose methods run Go code, local references grouped in frames,
// strong global references, per-OS-thread attachment and pending
// exceptions. It also keeps the books the bridge's invariants are checked
// against: live global references per object, local references per thread,
// attached threads, misuse (double delete, stale references, calls with an
// exception pending) and exceptions handed to the uncaught-exception handler.
package jvmtest

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"go.uber.org/atomic"

	"github.com/opd-ai/safejni/jni"
)

// Well-known classes every VM defines.
const (
	StringClass                   = "java/lang/String"
	ObjectClass                   = "java/lang/Object"
	RuntimeExceptionClass         = "java/lang/RuntimeException"
	IllegalArgumentExceptionClass = "java/lang/IllegalArgumentException"
	NullPointerExceptionClass     = "java/lang/NullPointerException"
	NoClassDefFoundErrorClass     = "java/lang/NoClassDefFoundError"
	NoSuchFieldErrorClass         = "java/lang/NoSuchFieldError"
	NoSuchMethodErrorClass        = "java/lang/NoSuchMethodError"
	ArrayIndexOutOfBoundsClass    = "java/lang/ArrayIndexOutOfBoundsException"
)

// Method is the Go body of a managed method. Returning an error raises a
// RuntimeException carrying the error text in the calling thread.
type Method func(env *Env, this jni.Object, args []jni.Value) error

// Field declares an instance field.
type Field struct {
	Name string
	Sign jni.Sign
}

// Class is a managed class definition.
type Class struct {
	Name    string
	fields  map[string]jni.Sign
	methods map[string]Method
}

// Method adds an instance method to c and returns c.
func (c *Class) Method(name string, sig jni.Sign, fn Method) *Class {
	c.methods[name+string(sig)] = fn
	return c
}

type object struct {
	class *Class
	sign  jni.Sign

	fields map[string]cell
	str    string
	bytes  []byte
	ints   []int32
	elems  []*object
	elem   jni.Sign
}

func (o *object) isArray() bool { return len(o.sign) > 0 && o.sign[0] == '[' }

func (o *object) length() int {
	switch {
	case o.sign == jni.ByteArraySign:
		return len(o.bytes)
	case o.sign == jni.IntArraySign:
		return len(o.ints)
	default:
		return len(o.elems)
	}
}

// cell holds one field value. Object fields keep the object itself;
// references to it are minted on every read.
type cell struct {
	v jni.Value
	o *object
}

type ref struct {
	obj    *object
	global bool
	env    *Env
}

// VM is an in-memory managed runtime.
type VM struct {
	mu      sync.Mutex
	classes map[string]*Class
	refs    map[*ref]struct{}
	envs    map[int]*Env

	attachErr  error
	attaches   atomic.Int64
	uncaught   []string
	violations []string
}

// New returns a VM with the java/lang classes the bridge touches defined.
func New() *VM {
	vm := &VM{
		classes: make(map[string]*Class),
		refs:    make(map[*ref]struct{}),
		envs:    make(map[int]*Env),
	}
	vm.DefineClass(ObjectClass)
	vm.DefineClass(StringClass)
	for _, name := range []string{
		RuntimeExceptionClass,
		IllegalArgumentExceptionClass,
		NullPointerExceptionClass,
		NoClassDefFoundErrorClass,
		NoSuchFieldErrorClass,
		NoSuchMethodErrorClass,
		ArrayIndexOutOfBoundsClass,
	} {
		vm.DefineClass(name, Field{Name: "message", Sign: jni.StringSign})
	}
	return vm
}

// DefineClass defines (or redefines) a class with a zero-argument
// constructor and the given instance fields.
func (vm *VM) DefineClass(name string, fields ...Field) *Class {
	c := &Class{
		Name:    name,
		fields:  make(map[string]jni.Sign, len(fields)),
		methods: make(map[string]Method),
	}
	for _, f := range fields {
		c.fields[f.Name] = f.Sign
	}
	vm.mu.Lock()
	vm.classes[name] = c
	vm.mu.Unlock()
	return c
}

// DefineCallback defines a class whose method name with descriptor sig runs fn.
func (vm *VM) DefineCallback(class, name string, sig jni.Sign, fn Method) *Class {
	return vm.DefineClass(class).Method(name, sig, fn)
}

// SetAttachError makes every later attach attempt fail with err; nil restores
// normal behaviour.
func (vm *VM) SetAttachError(err error) {
	vm.mu.Lock()
	vm.attachErr = err
	vm.mu.Unlock()
}

// AttachCurrentThreadAsDaemon implements jni.VM.
func (vm *VM) AttachCurrentThreadAsDaemon() (jni.Env, error) {
	env, err := vm.Attach()
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Attach is AttachCurrentThreadAsDaemon with the concrete return type.
func (vm *VM) Attach() (*Env, error) {
	tid := threadID()
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.attachErr != nil {
		return nil, vm.attachErr
	}
	vm.attaches.Inc()
	if env, ok := vm.envs[tid]; ok {
		return env, nil
	}
	env := &Env{vm: vm, tid: tid, frames: [][]*ref{nil}}
	vm.envs[tid] = env
	return env, nil
}

// Threads returns the number of distinct OS threads ever attached.
func (vm *VM) Threads() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.envs)
}

// Attaches returns the number of successful attach calls.
func (vm *VM) Attaches() int64 { return vm.attaches.Load() }

// GlobalRefs returns the number of live global references.
func (vm *VM) GlobalRefs() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	n := 0
	for r := range vm.refs {
		if r.global {
			n++
		}
	}
	return n
}

// GlobalRefsTo returns the number of live global references to the object
// obj refers to.
func (vm *VM) GlobalRefsTo(obj jni.Object) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	target, ok := vm.lookup(obj)
	if !ok {
		return 0
	}
	n := 0
	for r := range vm.refs {
		if r.global && r.obj == target.obj {
			n++
		}
	}
	return n
}

// LocalRefs returns the number of live local references across all threads.
func (vm *VM) LocalRefs() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	n := 0
	for r := range vm.refs {
		if !r.global {
			n++
		}
	}
	return n
}

// Uncaught returns the messages of exceptions handed to the uncaught
// exception handler, in order.
func (vm *VM) Uncaught() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]string(nil), vm.uncaught...)
}

// Violations returns every misuse of the runtime recorded so far.
func (vm *VM) Violations() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := append([]string(nil), vm.violations...)
	sort.Strings(out)
	return out
}

func (vm *VM) violate(format string, args ...any) {
	vm.violations = append(vm.violations, fmt.Sprintf(format, args...))
}

func (vm *VM) lookup(o jni.Object) (*ref, bool) {
	if o == nil {
		return nil, false
	}
	r := (*ref)(unsafe.Pointer(o))
	_, ok := vm.refs[r]
	return r, ok
}

func (vm *VM) class(name string) (*Class, bool) {
	c, ok := vm.classes[name]
	return c, ok
}

func (vm *VM) newObject(c *Class) *object {
	o := &object{class: c, sign: jni.ClassSign(c.Name), fields: make(map[string]cell, len(c.fields))}
	for name, sig := range c.fields {
		o.fields[name] = cell{v: zero(sig)}
	}
	return o
}

func zero(sig jni.Sign) jni.Value {
	switch sig.Kind() {
	case jni.KindBoolean:
		return jni.Boolean(false)
	case jni.KindByte:
		return jni.Byte(0)
	case jni.KindShort:
		return jni.Short(0)
	case jni.KindInt:
		return jni.Int(0)
	case jni.KindLong:
		return jni.Long(0)
	default:
		return jni.ObjectValue(jni.Null)
	}
}

// assignable reports whether o may be stored where sig is expected.
func assignable(o *object, sig jni.Sign) bool {
	if o == nil || sig == jni.ObjectSign {
		return true
	}
	return o.sign == sig
}
