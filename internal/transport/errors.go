package transport

import "errors"

// Proxy errors.
//
// Design decision: Each failure mode of the proxy check has its own sentinel
// so the CLI can tell "nothing listens there" apart from "something listens
// but it is not a SOCKS5 proxy" and print a useful hint.
var (
	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format with a port between 1 and 65535.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyNotSOCKS5 is returned when the proxy accepts the connection
	// but does not answer the SOCKS5 greeting without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy without authentication")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)

// Embedded Tor errors.
var (
	// ErrTorStartFailed is returned when the embedded Tor daemon cannot be
	// launched or does not bootstrap within its startup timeout.
	ErrTorStartFailed = errors.New("failed to start embedded Tor daemon")

	// ErrTorNotRunning is returned when the proxy of an embedded Tor daemon
	// is requested before Start succeeded.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)
