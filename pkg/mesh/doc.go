// Package mesh owns the datagram endpoint and wires the protocol
// pipeline together.
//
// Receive path: datagram -> decode chain -> Tumbler admission -> signal
// router dispatch + peer table update. Send path: Broadcast/SendTo
// through the binary wire codec. Two background tasks run while the
// transport is started: heartbeat emission and the peer staleness sweep.
// Both stop cleanly on Stop.
//
// There are no package-level singletons: the caller constructs the
// Tumbler, Router, and peer Table once and passes them in, so multiple
// independent mesh instances can coexist in one process under test.
package mesh
