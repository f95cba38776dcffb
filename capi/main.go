//go:build jni

package main

// #include <jni.h>
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/attach"
	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/config"
	"github.com/opd-ai/safejni/convert"
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/cjni"
	"github.com/sirupsen/logrus"
)

func main() {} // Required for c-shared build mode

// Process-wide state, written once by JNI_OnLoad.
var (
	jvm      *cjni.VM
	bindings *bridge.Bridge
)

//export JNI_OnLoad
func JNI_OnLoad(vm *C.JavaVM, reserved unsafe.Pointer) C.jint {
	version, err := load(unsafe.Pointer(vm))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "JNI_OnLoad",
			"package":  "capi",
			"error":    err.Error(),
		}).Error("Failed to load the bridge")
		return C.JNI_ERR
	}
	return C.jint(version)
}

func load(vm unsafe.Pointer) (jni.Version, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return 0, err
	}
	if err := cfg.Apply(); err != nil {
		return 0, err
	}

	jvm = cjni.NewVM(vm)
	version, err := attach.Default.Install(jvm)
	if err != nil {
		return 0, err
	}
	envIface, err := attach.Default.Env()
	if err != nil {
		return 0, err
	}
	env := envIface.(*cjni.Env)

	reg := convert.NewBindingsRegistry(cfg.ClassPackage)
	bindings = bridge.New(newLibrary(), reg, attach.Default, cfg)

	if err := jvm.Preload(env, managedClasses(cfg.ClassPackage, reg, bindings)...); err != nil {
		return 0, fmt.Errorf("resolve managed classes: %w", err)
	}
	if err := convert.Verify(env, reg); err != nil {
		return 0, fmt.Errorf("verify managed classes: %w", err)
	}
	if cfg.ClassPackage != "" {
		if err := env.RegisterNatives(cfg.ClassPackage+bridge.BindingsClass, nativeMethods(bindings)); err != nil {
			return 0, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":     "JNI_OnLoad",
		"package":      "capi",
		"classPackage": cfg.ClassPackage,
	}).Debug("Bridge loaded")
	return version, nil
}

// managedClasses lists every class the bridge resolves from native threads.
func managedClasses(pkg string, reg *convert.Registry, b *bridge.Bridge) []string {
	names := []string{pkg + bridge.BindingsClass}
	for _, s := range reg.Schemas() {
		names = append(names, s.Class)
	}
	for _, c := range b.Callbacks() {
		names = append(names, c.Class)
	}
	return names
}
