// Package loader scans a crontab directory into a set of parsed entries.
//
// Load parses every regular file in the directory on a bounded worker pool.
// A file that cannot be opened, or whose owner cannot be resolved, fails on
// its own; the rest of the scan continues. Watcher repeats the scan whenever
// the directory changes and publishes each new Result.
package loader
