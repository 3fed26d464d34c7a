// Package file provides the file sink component, which writes each message
// it receives to a file.
//
// # Overview
//
// The sink subscribes to its input ports and, for every message, resolves a
// target path and writes the payload there:
//
//	subject → Subscribe → [worker pool] → Resolver → Writer → file
//
// # Configuration
//
//	{
//	  "directory": "/var/spool/out",
//	  "name_expression": "substring(payload, 0, 4)",
//	  "suffix": "out",
//	  "mode": "replace",
//	  "ports": {"inputs": [{"name": "input", "type": "nats", "subject": "file.sink"}]}
//	}
//
// Directory and filename are either static (directory, name) or computed
// per message (directory_expression, name_expression). Without either the
// sink writes to $TMPDIR/file-sink/file-sink. The suffix is appended after
// a dot unless the name already ends with it.
//
// # Expressions
//
// Expressions use github.com/expr-lang/expr. In scope are payload (the
// payload as a string) and headers (the message headers). Besides the expr
// builtins such as upper, lower and trim, substring(s, start[, end]) and
// basename(p) are available:
//
//	"/data/" + headers.dir
//	lower(basename(headers.originalFileRef))
//
// Expressions are compiled when the sink is initialized, so syntax errors
// fail Initialize. A failing evaluation, a non-string or empty result, or a
// filename containing a path separator drops the message with a
// ResolutionError; it is never retried.
//
// # Write modes
//
//   - replace (default): write a hidden temp file, fsync, rename over the
//     target. Readers never see a partial file.
//   - fail: like replace, but an existing target is an ErrTargetExists
//     write error.
//   - ignore: an existing target is left untouched.
//   - append: append to the target in place. Not atomic.
//
// In text mode (the default) every payload is followed by the line
// separator; binary mode writes payload bytes verbatim.
//
// # Delivery
//
// With workers set to 0 the write happens on the delivering goroutine and a
// write error is returned to the bus, so JetStream redelivers the message.
// With workers > 0 messages are queued on a worker pool and the bus sees
// success once the message is queued. Transient write errors are retried
// with backoff before a message is given up.
package file
