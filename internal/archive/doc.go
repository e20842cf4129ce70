// Package archive is the zip codec of the crawler.
//
// Unpack expands an archive into a staging directory and lists its first
// level as a model.MemberTree. PackDir writes a directory tree into a new
// deflate-compressed archive and is used to package the crawl output.
package archive
