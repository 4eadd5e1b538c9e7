// Package camerabridge drives a native camera library through its callback
// entry points and turns the buffers it lends out into owned Go frames.
//
// The native library (libtq84) exposes a handful of C entry points:
// set_glbuff_cb registers a (byte*) -> int frame callback, callmeback
// registers and immediately exercises a (float, float, byte*) -> int
// comparison, start_video opens the camera and preview window, and
// begin_loop blocks until the capture duration elapses. camerabridge models
// that surface as the Library interface and layers a Bridge on top of it.
//
// # Quick Start
//
//	lib, err := backends.Open(backends.Options{Name: "sim", Geometry: geom})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bridge, err := camerabridge.New(lib, camerabridge.Config{
//	    Geometry: framegrid.Geometry{Width: 1024, Height: 1024, Channels: 4},
//	    Window:   camerabridge.Window{X: 0, Y: 0, Width: 1024, Height: 1024},
//	    Duration: -1, // library default (5s)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Stop()
//
//	frames, err := bridge.Start(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    select {
//	    case frame := <-frames:
//	        grid, _ := frame.Grid() // Height x Width view of frame.Data
//	        process(grid)
//	    case <-bridge.Done(): // duration elapsed or restarts exhausted
//	        return bridge.Wait()
//	    }
//	}
//
// The frame channel is closed by Stop, not when the loop ends on its own.
//
// # Buffer Ownership
//
// A buffer handed to a FrameCallback belongs to the library and is only
// valid for the duration of the call. The Bridge validates its length
// against the configured geometry, runs Config.Inspect on a zero-copy grid
// over it (writes are visible to the library), then copies it before
// returning. Frames on the channel never alias library memory.
//
// # Cancellation
//
// begin_loop blocks the calling thread until the library decides to stop.
// The Bridge runs it on its own goroutine under a context: cancelling the
// context passed to Start, or calling Stop, ends the loop. Callbacks that
// arrive after Stop are refused with StatusStopped.
//
// # Restarts
//
// A failing StartVideo or BeginLoop is retried with exponential backoff
// (1s, 2s, 4s ... capped at 30s, 5 consecutive attempts by default). Any
// delivered frame resets the consecutive failure count. A loop that ends
// because its duration elapsed is not restarted.
package camerabridge
