// Package framebus fans captured frames out to multiple consumers without
// ever blocking the capture path.
//
//	"Drop frames, never queue. Latency > Completeness."
//
// # Drop Policies
//
// DropNew subscribers hand the bus a channel. When the channel is full the
// incoming frame is dropped and counted:
//
//	bus := framebus.New()
//	defer bus.Close()
//
//	saverCh := make(chan framebus.Frame, 4)
//	bus.Subscribe("saver", saverCh)
//
// DropOld subscribers get a FrameReceiver that always holds the latest
// frame. An unread frame that gets replaced counts as dropped:
//
//	receiver, _ := bus.SubscribeDropOld("stats")
//	for {
//	    frame, ok := receiver.Receive()
//	    if !ok {
//	        return // receiver closed
//	    }
//	    report(frame)
//	}
//
// # Frame Ownership
//
// Frames are camerabridge frames whose Data is already a private copy of
// the native buffer. Every subscriber sees the same Data slice and must not
// modify it.
//
// # Observability
//
//	stats := bus.BusStats()
//	fmt.Printf("Published: %d, Sent: %d, Dropped: %d (%.1f%%)\n",
//	    stats.TotalPublished, stats.TotalSent, stats.TotalDropped,
//	    framebus.CalculateDropRate(stats)*100)
//
// # Thread Safety
//
// All operations are safe for concurrent use. Publish on a closed bus is a
// no-op.
package framebus
