// Package registry holds the fixed catalog of pipeline stages and their
// command templates. The catalog is immutable process-wide state: it is
// built once by New and then only ever read, so a single instance can be
// shared by reference into any number of executors.
package registry
