package bridge_test

import (
	"sync"
	"unsafe"

	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/bridge/bridgetest"
	"github.com/opd-ai/safejni/native"
)

// Stub values reported by stubLib.
const (
	stubID   int32 = 42
	stubName       = "hello"
)

var stubNumbers = []int32{10, 20, 30}

// stubLib is a Library whose callbacks fire only when the test asks.
type stubLib struct {
	mu       sync.Mutex
	pending  map[string][]func()
	apps     []bridgetest.AppInfo
	accounts []string
	data     [][]byte
	keys     [][]native.Key
	numbers  []int32
}

var _ bridge.Library = (*stubLib)(nil)

func newStubLib() *stubLib {
	return &stubLib{pending: make(map[string][]func()), numbers: stubNumbers}
}

func (l *stubLib) push(name string, fire func()) {
	l.mu.Lock()
	l.pending[name] = append(l.pending[name], fire)
	l.mu.Unlock()
}

// Fire runs the oldest pending callback registered under name and reports
// whether there was one.
func (l *stubLib) Fire(name string) bool {
	l.mu.Lock()
	q := l.pending[name]
	if len(q) == 0 {
		l.mu.Unlock()
		return false
	}
	fire := q[0]
	l.pending[name] = q[1:]
	l.mu.Unlock()
	fire()
	return true
}

// Pending returns the number of callbacks not yet fired.
func (l *stubLib) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, q := range l.pending {
		n += len(q)
	}
	return n
}

func (l *stubLib) takeApp(info *native.AppInfo) bridgetest.AppInfo {
	app := bridgetest.AppInfo{ID: info.ID, Name: native.GoString(info.Name), Key: info.Key}
	native.FreeString(info.Name)
	l.mu.Lock()
	l.apps = append(l.apps, app)
	l.mu.Unlock()
	return app
}

func ok() *native.FfiResult { return &native.FfiResult{} }

func (l *stubLib) RegisterApp(info *native.AppInfo, userData unsafe.Pointer, cb bridge.ResultFunc) {
	l.takeApp(info)
	l.push("register_app", func() { cb(userData, ok()) })
}

func (l *stubLib) GetAppID(info *native.AppInfo, userData unsafe.Pointer, cb bridge.Int32Func) {
	l.takeApp(info)
	l.push("get_app_id", func() { cb(userData, ok(), stubID) })
}

func (l *stubLib) GetAppName(info *native.AppInfo, userData unsafe.Pointer, cb bridge.StringFunc) {
	l.takeApp(info)
	l.push("get_app_name", func() {
		s := native.CString(stubName)
		defer native.FreeString(s)
		cb(userData, ok(), s)
	})
}

func (l *stubLib) GetAppKey(info *native.AppInfo, userData unsafe.Pointer, cb bridge.KeyFunc) {
	app := l.takeApp(info)
	l.push("get_app_key", func() { cb(userData, ok(), &app.Key) })
}

func (l *stubLib) RandomNumbers(userData unsafe.Pointer, cb bridge.Int32ArrayFunc) {
	numbers := l.numbers
	l.push("random_numbers", func() { cb(userData, ok(), numbers) })
}

func (l *stubLib) RandomKeys(userData unsafe.Pointer, cb bridge.KeyArrayFunc) {
	l.push("random_keys", func() { cb(userData, ok(), nil) })
}

func (l *stubLib) GetAppInfo(info *native.AppInfo, userData unsafe.Pointer, cb bridge.Int32StringKeyFunc) {
	app := l.takeApp(info)
	l.push("get_app_info", func() { cb(userData, ok(), app.ID, nil, nil) })
}

func (l *stubLib) CreateAccount(locator, password *byte, userData unsafe.Pointer, connect bridge.AppInfoFunc, disconnect bridge.ResultFunc) {
	account := native.GoString(locator) + ":" + native.GoString(password)
	l.mu.Lock()
	l.accounts = append(l.accounts, account)
	l.mu.Unlock()
	l.push("connect", func() {
		info := native.AppInfo{ID: 1, Name: native.CString(account)}
		defer native.FreeString(info.Name)
		connect(userData, ok(), &info)
	})
	l.push("disconnect", func() { disconnect(userData, ok()) })
}

// VerifySignature reports a null result.
func (l *stubLib) VerifySignature(data []byte, userData unsafe.Pointer, cb bridge.ResultFunc) {
	l.mu.Lock()
	l.data = append(l.data, append([]byte(nil), data...))
	l.mu.Unlock()
	l.push("verify_signature", func() { cb(userData, nil) })
}

func (l *stubLib) VerifyKeys(keys []native.Key, userData unsafe.Pointer, cb bridge.ResultFunc) {
	l.mu.Lock()
	l.keys = append(l.keys, append([]native.Key(nil), keys...))
	l.mu.Unlock()
	l.push("verify_keys", func() { cb(userData, ok()) })
}
