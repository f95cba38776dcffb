//go:build jni && standalone

package main

import (
	"github.com/opd-ai/safejni/backend"
	"github.com/opd-ai/safejni/bridge"
)

func newLibrary() bridge.Library { return backend.New(backend.Options{}) }
