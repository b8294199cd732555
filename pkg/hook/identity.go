package hook

import (
	"reflect"
)

// handlerPointer returns a comparable identity for the underlying
// func value wrapped by a Handler, used by AddHandler's deduplicate
// path. Go forbids comparing func values directly; reflecting to the
// code pointer is the standard workaround (the same technique used to
// compare closures by origin rather than by call semantics).
func handlerPointer(h Handler) uintptr {
	switch v := h.(type) {
	case noTopicHandler:
		return reflect.ValueOf(v.fn).Pointer()
	case withTopicHandler:
		return reflect.ValueOf(v.fn).Pointer()
	default:
		return 0
	}
}
