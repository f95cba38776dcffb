//go:build !linux

package jvmtest

// Without a portable thread id every caller shares one Env.
func threadID() int { return 0 }
