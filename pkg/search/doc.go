/*
Package search maintains the SQLite-backed index of rendered documentation
pages. The site builder feeds every rendered page into an Indexer inside a
single transaction, alongside a record of the build itself, and the docs
server queries the index to answer search requests.
*/
package search
