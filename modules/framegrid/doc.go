// Package framegrid reinterprets flat 8-bit frame buffers as 2-D pixel grids.
//
// A frame delivered by a capture library is a contiguous run of
// width*height*channels samples. framegrid gives that run a shape without
// copying it:
//
//	grid, err := framegrid.Reshape(buf, framegrid.Geometry{Width: 1024, Height: 1024, Channels: 4})
//	if err != nil {
//	    // len(buf) did not match the geometry
//	}
//	grid.Set(10, 20, 255, 0, 0, 255) // visible to whoever owns buf
//
// Native memory is wrapped with FromPointer. Such a grid is only valid while
// the native side keeps the memory alive (typically the duration of one
// frame callback); call Clone to keep the pixels beyond that.
package framegrid
