// Package transport builds the HTTP client used by the crawler.
//
// The client follows at most MaxRedirects redirects, keeps no cookies and
// injects a fixed set of headers into every request, including redirects.
// Optionally all connections go through a SOCKS5 proxy, either an external
// one (WithProxy) or a private Tor daemon started with EmbeddedTor.
//
// # Usage
//
//	client, err := transport.NewClient(
//	    transport.WithTimeout(5*time.Second),
//	    transport.WithProxy("127.0.0.1:1080"),
//	)
//
//	embedded := transport.NewEmbeddedTor()
//	if err := embedded.Start(ctx); err != nil {
//	    return err
//	}
//	defer embedded.Stop()
//	client, err = transport.NewClient(transport.WithProxy(embedded.SocksAddr()))
package transport
