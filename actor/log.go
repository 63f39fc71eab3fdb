package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-level logger used by every type in this package. It
// defaults to a no-op logger so the package is silent until a host wires a
// real sink via UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-level logger used by the actor runtime. Callers
// typically build a logger with btclog.NewSLogger over a console or file
// handler and pass it here once during process startup.
func UseLogger(logger btclog.Logger) {
	log = logger
}
