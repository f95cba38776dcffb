// Package backend is a Go implementation of the native demo library the
// bridge binds. Each operation copies its arguments, returns, and runs its
// callbacks later on an OS thread of its own, as the C library does.
package backend

import (
	"runtime"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/native"
)

// Result codes reported by the library.
const (
	CodeOK               int32 = 0
	CodeInvalidSignature int32 = -11
)

const (
	// RandomKeyCount is the number of keys random_keys yields.
	RandomKeyCount = 5
	// AccountID is the id of every account create_account opens.
	AccountID int32 = 5678
)

// Values produced by the library.
var (
	RandomNumbers = []int32{1, 1, 2, 3, 5, 8, 13, 21}
	AccountKey    = native.Key{Bytes: [native.KeySize]int8{0, 4, 6, 8, 9, 10, 12, 14}}
)

// Options tune how callbacks are delivered.
type Options struct {
	// Synchronous runs the callbacks on the calling thread before the
	// operation returns.
	Synchronous bool
	// DisconnectDelay separates the two callbacks of create_account.
	DisconnectDelay time.Duration
}

// Library implements bridge.Library.
type Library struct {
	opts Options
	wg   sync.WaitGroup
}

var _ bridge.Library = (*Library)(nil)

// New returns a library with the given options.
func New(opts Options) *Library {
	return &Library{opts: opts}
}

// Wait blocks until every callback started so far has returned.
func (l *Library) Wait() { l.wg.Wait() }

func (l *Library) run(name string, body func()) {
	fields := logrus.Fields{
		"function": name,
		"package":  "backend",
	}
	logrus.WithFields(fields).Debug("Start")
	if l.opts.Synchronous {
		body()
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		logrus.WithFields(fields).Debug("New thread. Calling the callback")
		body()
		logrus.WithFields(fields).Debug("Finished calling the callback")
	}()
}

// result builds an FfiResult on the native heap. free releases its message.
func result(code int32, msg string) (res *native.FfiResult, free func()) {
	res = &native.FfiResult{ErrorCode: code, Error: native.CString(msg)}
	return res, func() { native.FreeString(res.Error) }
}

func ok() (*native.FfiResult, func()) { return result(CodeOK, "OK") }

// appInfo copies info and takes ownership of its name.
func appInfo(info *native.AppInfo) (int32, string, native.Key) {
	name := native.GoString(info.Name)
	native.FreeString(info.Name)
	info.Name = nil
	return info.ID, name, info.Key
}

// RegisterApp implements bridge.Library.
func (l *Library) RegisterApp(info *native.AppInfo, userData unsafe.Pointer, cb bridge.ResultFunc) {
	appInfo(info)
	l.run("register_app", func() {
		res, free := ok()
		defer free()
		cb(userData, res)
	})
}

// GetAppID implements bridge.Library.
func (l *Library) GetAppID(info *native.AppInfo, userData unsafe.Pointer, cb bridge.Int32Func) {
	id, _, _ := appInfo(info)
	l.run("get_app_id", func() {
		res, free := ok()
		defer free()
		cb(userData, res, id)
	})
}

// GetAppName implements bridge.Library.
func (l *Library) GetAppName(info *native.AppInfo, userData unsafe.Pointer, cb bridge.StringFunc) {
	_, name, _ := appInfo(info)
	l.run("get_app_name", func() {
		res, free := ok()
		defer free()
		s := native.CString(name)
		defer native.FreeString(s)
		cb(userData, res, s)
	})
}

// GetAppKey implements bridge.Library.
func (l *Library) GetAppKey(info *native.AppInfo, userData unsafe.Pointer, cb bridge.KeyFunc) {
	_, _, key := appInfo(info)
	l.run("get_app_key", func() {
		res, free := ok()
		defer free()
		cb(userData, res, &key)
	})
}

// RandomNumbers implements bridge.Library.
func (l *Library) RandomNumbers(userData unsafe.Pointer, cb bridge.Int32ArrayFunc) {
	l.run("random_numbers", func() {
		res, free := ok()
		defer free()
		cb(userData, res, append([]int32(nil), RandomNumbers...))
	})
}

// RandomKeys implements bridge.Library.
func (l *Library) RandomKeys(userData unsafe.Pointer, cb bridge.KeyArrayFunc) {
	l.run("random_keys", func() {
		res, free := ok()
		defer free()
		keys := make([]native.Key, RandomKeyCount)
		for i := range keys {
			for j := range keys[i].Bytes {
				keys[i].Bytes[j] = int8(i)
			}
		}
		cb(userData, res, keys)
	})
}

// GetAppInfo implements bridge.Library.
func (l *Library) GetAppInfo(info *native.AppInfo, userData unsafe.Pointer, cb bridge.Int32StringKeyFunc) {
	id, name, key := appInfo(info)
	l.run("get_app_info", func() {
		res, free := ok()
		defer free()
		s := native.CString(name)
		defer native.FreeString(s)
		cb(userData, res, id, s, &key)
	})
}

// CreateAccount implements bridge.Library. The account is named
// "locator:password".
func (l *Library) CreateAccount(locator, password *byte, userData unsafe.Pointer, connect bridge.AppInfoFunc, disconnect bridge.ResultFunc) {
	name := strings.Join([]string{native.GoString(locator), native.GoString(password)}, ":")
	l.run("create_account", func() {
		res, free := ok()
		defer free()
		info := native.AppInfo{ID: AccountID, Name: native.CString(name), Key: AccountKey}
		connect(userData, res, &info)
		native.FreeString(info.Name)

		if l.opts.DisconnectDelay > 0 {
			time.Sleep(l.opts.DisconnectDelay)
		}
		disconnect(userData, res)
	})
}

// VerifySignature implements bridge.Library. A signature is valid when it
// has at least one non-zero byte.
func (l *Library) VerifySignature(data []byte, userData unsafe.Pointer, cb bridge.ResultFunc) {
	valid := false
	for _, b := range data {
		if b != 0 {
			valid = true
			break
		}
	}
	l.run("verify_signature", func() {
		code, msg := CodeOK, "OK"
		if !valid {
			code, msg = CodeInvalidSignature, "Invalid signature"
		}
		res, free := result(code, msg)
		defer free()
		cb(userData, res)
	})
}

// VerifyKeys implements bridge.Library.
func (l *Library) VerifyKeys(keys []native.Key, userData unsafe.Pointer, cb bridge.ResultFunc) {
	keys = append([]native.Key(nil), keys...)
	l.run("verify_keys", func() {
		for _, k := range keys {
			logrus.WithFields(logrus.Fields{
				"function": "verify_keys",
				"package":  "backend",
				"key":      k.Bytes,
			}).Debug("Verifying key")
		}
		res, free := ok()
		defer free()
		cb(userData, res)
	})
}
