package simulator

import (
	"context"

	"github.com/arloliu/secs-simulator/hsms"
)

// DataMessageHandler is invoked for every data message received from the peer.
type DataMessageHandler func(msg *hsms.DataMessage)

// Communicator is the transport the simulator exchanges messages through.
//
// Implementations deliver received primaries, and replies not claimed by a pending Send, to the
// data message handlers from a single goroutine, in the order they were received.
type Communicator interface {
	// Open starts the connection. Connectivity is reported asynchronously to the conn state handlers.
	Open(ctx context.Context) error
	// Close closes the connection and reports the disconnection to the conn state handlers.
	Close() error
	// DeviceID returns the device id of the connection.
	DeviceID() uint16
	// Send sends msg as is. If msg expects a reply, Send blocks until the reply arrives, the T3
	// timeout elapses (hsms.ErrT3Timeout) or ctx is done; it returns nil otherwise.
	Send(ctx context.Context, msg *hsms.DataMessage) (*hsms.DataMessage, error)
	// Reply sends reply as the reply of primary: it carries the primary's session id and system bytes.
	Reply(ctx context.Context, primary *hsms.DataMessage, reply *hsms.DataMessage) error
	// AddConnStateHandler adds a handler of connectivity changes.
	AddConnStateHandler(handler ConnStateHandler)
	// AddDataMessageHandler adds a handler of received data messages.
	AddDataMessageHandler(handler DataMessageHandler)
}
