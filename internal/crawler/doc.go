// Package crawler implements a concurrent, same-host web crawler that
// reports pages whose visible text contains words from a word list.
//
// # Architecture
//
// A run is built from four parts:
//
//   - Frontier: visited set and FIFO work queue behind one lock, with an
//     in-flight counter used for drain detection
//   - Crawler: a fixed pool of workers that pop, fetch, process and claim
//   - Processor: link extraction, scope and extension filtering, visible
//     text extraction and whole-word matching
//   - result.Sink: the serialized append-only result file writer
//
// # Termination
//
// The work queue grows while it is consumed, so an empty queue alone does not
// mean the crawl is over: a worker still processing a page may be about to
// claim new links. The frontier is drained only when the queue is empty and
// no popped URL is still in flight. Idle workers wait on a condition variable
// and are all woken when the last in-flight page completes.
//
// # Scope
//
// The network location (host[:port]) of the seed is captured once at the
// start of a run. Links to any other host, and links whose path ends in a
// downloadable extension (.pdf, .zip, .jpg, ...), are never claimed.
//
// # Usage
//
//	c := crawler.New(
//	    crawler.WithConcurrency(15),
//	    crawler.WithTimeout(5*time.Second),
//	    crawler.WithOutputDir("results"),
//	)
//	summary, err := c.Run(ctx, "https://example.com", []string{"cat", "dog"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(summary.ResultFile) // results/links_example_com.txt
//
// # Non-goals
//
// The crawler does not read robots.txt, does not delay between requests and
// does not render JavaScript. Fetches are attempted once.
package crawler
