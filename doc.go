// Package onevpl drives an external video codec engine through its
// asynchronous submit and synchronize protocol.
//
// A Session owns one engine session. Decoders, encoders and video
// processors are created on it and exchange data through the bitstream and
// surface packages:
//
//	eng := software.New(nil)
//	session, err := onevpl.NewSession(eng, onevpl.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	bs := bitstream.New(make([]byte, 2<<20), bitstream.CodecRaw)
//	io.Copy(bs, input)
//
//	params, err := session.DecodeHeader(bs, engine.IOPatternSystemMemory)
//	decoder, err := session.NewDecoder(params)
//
// # Submit and Synchronize
//
// Submit never waits for the engine. It returns an [Operation] whose output
// is provisional until [Operation.Synchronize] succeeds, or a flow-control
// status from the status package:
//
//   - status.MoreData: buffer more input and submit again. At end of stream
//     it means nothing is left to drain.
//   - status.MoreSurface: synchronize and release an earlier output first.
//   - status.VideoParamChanged: re-read Params and continue.
//
// Any other error belongs to that operation. Fatal engine statuses (device
// lost, device failed, invalid handle) fail the whole session; later calls
// return ErrSessionFailed.
//
// Synchronize blocks on a goroutine from the session sync pool rather than
// on the caller. Cancelling its context stops the wait; the engine work
// keeps running and a later Synchronize collects it. Up to AsyncDepth
// operations may be outstanding, which [OperationQueue] helps to bound:
//
//	queue := onevpl.NewOperationQueue(opts.AsyncDepth)
//	for {
//	    op, err := decoder.Submit(bs)
//	    // handle flow control ...
//	    if oldest := queue.Push(op); oldest != nil {
//	        frame, err := oldest.Synchronize(ctx)
//	        // use frame, then frame.Close()
//	    }
//	}
//
// # Draining
//
// At end of stream every component must be drained; Drain submits "no more
// input" until the engine reports MoreData:
//
//	err = decoder.Drain(ctx, func(frame *surface.FrameSurface) error {
//	    _, err := io.Copy(output, frame)
//	    return err
//	})
//
// # Configuration
//
// [Options] carries the pipeline settings with defaults from [NewOptions].
// [LoadOptions] reads the same settings from YAML.
package onevpl
