//go:build linux

package jvmtest

import "golang.org/x/sys/unix"

func threadID() int { return unix.Gettid() }
