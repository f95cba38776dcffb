package jni

import (
	"fmt"
	"strings"
)

// Sign is a JVM type descriptor, e.g. "I", "[B", "Ljava/lang/String;" or a
// method descriptor such as "(LFfiResult;I)V".
type Sign string

const (
	VoidSign      Sign = "V"
	BoolSign      Sign = "Z"
	ByteSign      Sign = "B"
	ShortSign     Sign = "S"
	IntSign       Sign = "I"
	LongSign      Sign = "J"
	StringSign    Sign = "Ljava/lang/String;"
	ObjectSign    Sign = "Ljava/lang/Object;"
	ByteArraySign Sign = "[B"
	IntArraySign  Sign = "[I"
)

// ClassSign returns the descriptor of the class with the given name, in
// internal ("java/lang/String") or binary ("java.lang.String") form.
func ClassSign(className string) Sign {
	return Sign("L" + strings.ReplaceAll(className, ".", "/") + ";")
}

// ArraySign returns the descriptor of an array with elements of type sign.
func ArraySign(sign Sign) Sign {
	return "[" + sign
}

// FuncSign returns the descriptor of a method taking args and returning ret.
func FuncSign(args []Sign, ret Sign) Sign {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(string(a))
	}
	b.WriteByte(')')
	b.WriteString(string(ret))
	return Sign(b.String())
}

// Kind returns the Value kind that carries a value of type s.
func (s Sign) Kind() Kind {
	if s == "" {
		return KindVoid
	}
	switch s[0] {
	case 'V':
		return KindVoid
	case 'Z':
		return KindBoolean
	case 'B':
		return KindByte
	case 'S':
		return KindShort
	case 'I':
		return KindInt
	case 'J':
		return KindLong
	default:
		return KindObject
	}
}

// ClassName returns the internal class name of an object descriptor, or
// the descriptor itself for arrays ("[B"), which is how JNI names array
// classes. It returns "" for primitives.
func (s Sign) ClassName() string {
	switch {
	case strings.HasPrefix(string(s), "["):
		return string(s)
	case strings.HasPrefix(string(s), "L") && strings.HasSuffix(string(s), ";"):
		return string(s[1 : len(s)-1])
	}
	return ""
}

// ParseFuncSign splits a method descriptor into its argument and return
// descriptors.
func ParseFuncSign(sig Sign) ([]Sign, Sign, error) {
	s := string(sig)
	if !strings.HasPrefix(s, "(") {
		return nil, "", fmt.Errorf("jni: %q is not a method descriptor", s)
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return nil, "", fmt.Errorf("jni: %q has no closing parenthesis", s)
	}
	var args []Sign
	rest := s[1:end]
	for len(rest) > 0 {
		n, err := fieldSignLen(rest)
		if err != nil {
			return nil, "", fmt.Errorf("jni: bad descriptor %q: %w", s, err)
		}
		args = append(args, Sign(rest[:n]))
		rest = rest[n:]
	}
	ret := s[end+1:]
	if n, err := fieldSignLen(ret); err != nil || n != len(ret) {
		return nil, "", fmt.Errorf("jni: bad return type in %q", s)
	}
	return args, Sign(ret), nil
}

func fieldSignLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i == len(s) {
		return 0, fmt.Errorf("truncated descriptor")
	}
	switch s[i] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D', 'V':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class descriptor")
		}
		return i + end + 1, nil
	}
	return 0, fmt.Errorf("unknown type %q", s[i])
}
