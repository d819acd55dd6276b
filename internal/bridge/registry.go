package bridge

import "fmt"

var global NativeSDK

// Register is called once from native (Swift/Kotlin) before Start().
func Register(n NativeSDK) {
	global = n
}

// Get returns the registered SDK. Panics if Register was never called.
func Get() NativeSDK {
	if global == nil {
		panic("bridge: no NativeSDK registered, call bridge.Register() before Start()")
	}
	return global
}

// Safe returns the registered SDK and an error instead of panicking.
func Safe() (NativeSDK, error) {
	if global == nil {
		return nil, fmt.Errorf("bridge: no NativeSDK registered")
	}
	return global, nil
}
