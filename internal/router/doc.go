// Package router maps protocol message tags to domain events.
//
// A Registry holds one Factory per tag. It is filled once at startup, frozen,
// and then read concurrently by every frame source:
//
//	reg, err := router.NewDefault()
//	...
//	ev, err := reg.Dispatch(frame.Tag, frame.Payload)
//	if errors.Is(err, router.ErrUnhandledTag) {
//	    // log and skip
//	}
//
// Dispatch never panics. Unknown tags return *UnhandledError, factory
// failures and factory panics are wrapped in ErrInvalidPayload.
package router
