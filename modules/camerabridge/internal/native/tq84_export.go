//go:build cgo && tq84

package native

// A file with //export directives may only declare C symbols, so the
// preamble with the static wrappers lives in tq84.go.

/*
#include <stddef.h>
*/
import "C"

import "unsafe"

//export goFrameCallback
func goFrameCallback(buf *C.uchar) C.int {
	return C.int(dispatchFrame(unsafe.Pointer(buf)))
}

//export goCompareCallback
func goCompareCallback(a, b C.float, buf unsafe.Pointer) C.int {
	return C.int(dispatchCompare(float32(a), float32(b), buf))
}
