package bridge

// NativeSDK is implemented by the native side (Swift/Kotlin) around the
// vendor payments SDK. gomobile exposes this as an interface that native
// code can satisfy.
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - no variadic parameters
//   - errors are returned as a second return value
//
// Structured values (customer, button params, order) travel as JSON strings.
type NativeSDK interface {
	// IsAvailable reports whether the vendor SDK is linked into the app.
	IsAvailable() bool

	// Configure sets up the vendor SDK. customerJSON is empty or a JSON
	// object with name, email, phone, country and dateOfBirth.
	Configure(merchantPublicKey string, environment string, returnURI string, requestShipping bool, customerJSON string) error

	// CreateButtonView creates the vendor pay button for viewID and returns
	// a native handle for it.
	CreateButtonView(viewID string, paramsJSON string) (string, error)

	// CreateController creates a vendor payment controller under ref. When
	// notifyConfirmationFlow is true the native side must call
	// DeliverConfirmationFlow(ref) once the vendor creates the flow.
	CreateController(ref string, notifyConfirmationFlow bool) error

	// Pay starts a payment on the controller ref. The native side must
	// later call DeliverPaymentResult(attemptID, ...) exactly once.
	Pay(ref string, attemptID string, orderJSON string) error

	// ReleaseButtonView drops the native view returned by CreateButtonView.
	ReleaseButtonView(handle string) error

	// ReleaseController drops the vendor controller created under ref. No
	// confirmation flow is delivered for it afterwards.
	ReleaseController(ref string) error

	// SDKVersion returns {"version","platform","buildNumber"} as JSON.
	SDKVersion() string

	// PlatformVersion returns the OS name and release, e.g. "Android 14".
	PlatformVersion() string
}
