package jni

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// MangleSymbol returns the short native symbol the runtime looks up for the
// native method methodName of class className ("net/maidsafe/NativeBindings"
// or "net.maidsafe.NativeBindings").
func MangleSymbol(className, methodName string) string {
	return "Java_" + mangleClass(className) + "_" + mangle(methodName)
}

// MangleOverloadedSymbol returns the long symbol form that also encodes the
// argument types of the method descriptor sig; it is needed only when a
// native method is overloaded.
func MangleOverloadedSymbol(className, methodName string, sig Sign) string {
	s := string(sig)
	if i := strings.IndexByte(s, ')'); strings.HasPrefix(s, "(") && i > 0 {
		s = s[1:i]
	}
	return MangleSymbol(className, methodName) + "__" + mangleClass(s)
}

func mangleClass(className string) string {
	parts := strings.FieldsFunc(strings.ReplaceAll(className, ".", "/"), func(r rune) bool { return r == '/' })
	for i, p := range parts {
		parts[i] = mangle(p)
	}
	return strings.Join(parts, "_")
}

func mangle(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "_0%04x", u)
			}
		}
	}
	return b.String()
}
