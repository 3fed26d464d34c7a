// Package file provides the file source component.
//
// # Overview
//
// A file source polls one directory on a fixed-delay timer, turns every file
// it has not emitted before into messages and publishes them on its output
// ports. Producers are expected to write under a temporary name and rename
// when done; names ending in an in-progress suffix (".tmp" by default) and
// hidden entries are never picked up.
//
// # Configuration
//
//	{
//	    "directory": "/var/spool/in",
//	    "filename_pattern": "*.csv",
//	    "consumer": {"mode": "lines", "with_markers": true},
//	    "trigger": {"fixed_delay": 500, "time_unit": "milliseconds"},
//	    "ports": {"outputs": [{"name": "output", "type": "nats", "subject": "file.lines"}]}
//	}
//
// filename_pattern is a glob and filename_regex a regular expression that must
// match the whole base name; at most one may be set.
//
// # Consumer modes
//
//   - ref: one message per file. With content_type text/plain the payload is
//     the absolute path, otherwise a JSON FileReference.
//   - contents: one message with the file bytes, or text with
//     contents_as_text.
//   - lines: one text message per line with a lineNumber header, optionally
//     bracketed by START and END markers. END carries the line count.
//
// Every message carries the filename, relativePath and originalFileRef
// headers.
//
// # Delivery
//
// A file is built completely before its first message is published. When
// building or publishing fails the file stays unseen and is retried on the
// next cycle, unless retry_failed is false. The seen-set lives in memory, or
// in a NATS KV bucket with seen_store.type "kv" so restarts do not re-emit.
//
// With watch enabled, filesystem events wake the poll loop early.
package file
