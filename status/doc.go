// Package status defines the status taxonomy shared by every component that
// talks to the codec engine.
//
// Every engine entry point reports a small signed integer. Status wraps that
// integer, implements error, and sorts each code into a Class so callers can
// decide what to do without memorizing engine constants:
//
//	switch st := status.FromCode(code); st.Class() {
//	case status.ClassFlowControl:
//	    // feed more input, drain an output, or refresh parameters
//	case status.ClassTimeout:
//	    // the operation is still running; poll again
//	case status.ClassFatal:
//	    // tear the session down
//	}
//
// Status values compare with errors.Is, so wrapped errors stay classifiable:
//
//	if errors.Is(err, status.MoreData) {
//	    // refill the bitstream and resubmit
//	}
package status
