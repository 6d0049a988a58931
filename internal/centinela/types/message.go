// Package types holds the shared message shapes passed between the
// transport and the command router.
package types

// Incoming is one operator message, normalized by the transport.
type Incoming struct {
	OperatorID int64
	Text       string
}

// Reply is the router's answer.  A non-empty PhotoPath asks the transport
// to attach the file.
type Reply struct {
	Text      string
	PhotoPath string
}
