package eventstream

import "github.com/btcsuite/btclog/v2"

// log is the package-level logger, silent until UseLogger is called.
var log = btclog.Disabled

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
