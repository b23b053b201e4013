// Package hci talks to a Bluetooth controller over a raw HCI socket: it
// toggles LE scanning with chosen parameters and reads advertising-report
// events, handing their EIR payload to the adv package.
//
// The scan control protocol tolerates one documented controller quirk:
// changing scan parameters while scanning is already active is rejected with
// "Command Disallowed", in which case scanning is disabled and the change
// retried exactly once. See EnableScan.
//
// The model is deliberately single-threaded and blocking. The only
// suspension point is the read of one event frame, which retries
// transparently when interrupted by a signal. Cancellation is caller-driven:
// closing the connection unblocks a pending read, and since the controller's
// scan state outlives the socket, scanning is then disabled through a fresh
// short-lived connection.
package hci
