// Package qbuflog constructs the structured logger shared by the qbuf
// manager, ticker, and backend-expiry handshake. It wraps go.uber.org/zap
// the way the teacher wraps the stdlib log package: one constructor,
// injected wherever a component needs to log.
package qbuflog

import "go.uber.org/zap"

// New builds a production zap.Logger, or a development logger with
// human-readable console output when dev is true (useful under
// cmd/qbufd when run interactively).
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
