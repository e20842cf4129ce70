// Package metrics exposes crawl progress as Prometheus metrics.
//
// A Collector owns a private registry so that several crawls in one process
// never share counters. It implements the crawler's Observer interface and
// its LinkDropped method fits crawler.DropHook. The registry can be written
// to a node_exporter textfile once the run is over.
package metrics
