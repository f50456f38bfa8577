// Package buffer provides reusable PCM packet buffers and a fixed-count
// pool for the audio ingest path. The pool never blocks and never
// allocates after construction, so the packet producer can shed load
// instead of stalling when the consumer falls behind.
package buffer
