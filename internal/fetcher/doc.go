// Package fetcher downloads package archives and unpacks them.
//
// Archives are addressed by URL. http, https, file and s3 schemes are
// supported; the local file name is the last path component of the URL.
// Extraction refuses entries that would land outside the destination.
package fetcher
