// Package filestreams moves data between directories and a message bus.
//
// A file source polls a directory, turns every new file into messages and
// publishes them. A file sink subscribes to messages and writes each one to
// a file whose directory and name can be computed from the message itself.
// Sources and sinks are components wired together by bus subjects, so a
// deployment is a configuration file rather than code.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Component Manager            │  Create, initialize,
//	│   (service.ComponentManager)        │  start, stop, health
//	└─────────────────────────────────────┘
//	           ↓ manages
//	┌─────────────────────────────────────┐
//	│          Components                 │  file-source (input)
//	│    (input/file, output/file)        │  file-sink (output)
//	└─────────────────────────────────────┘
//	           ↓ communicate via
//	┌─────────────────────────────────────┐
//	│             Bus                     │  memory, NATS core,
//	│           (bus.Bus)                 │  JetStream
//	└─────────────────────────────────────┘
//
// # File source pipeline
//
//	directory ──► Poller ──► Splitter ──► Source ──► bus subject
//	             (list,     (contents,   (markers,
//	              filter,    lines)       headers,
//	              seen set)               rate limit)
//
// The Poller lists the directory on every tick, drops files that do not
// match the filename filter, are hidden, are still being written, or were
// already emitted. The Splitter turns each new file into one message or
// one message per line. The Source stamps headers, optionally brackets each
// file with start and end markers, and publishes.
//
// # File sink pipeline
//
//	bus subject ──► Sink ──► Evaluator ──► Resolver ──► Writer ──► file
//	               (queue,   (name and     (absolute    (replace,
//	                workers)  directory     target)      append, fail,
//	                          expressions)               ignore)
//
// Writes to one target path are serialized; writes to distinct paths may
// run concurrently on the worker pool.
//
// # Fan-out
//
// Several sinks may subscribe to the same subject. Each writes
// independently:
//
//	                ┌─────────────┐
//	                │ file-source │
//	                └──────┬──────┘
//	                       │
//	                  file.source
//	                       │
//	          ┌────────────┼────────────┐
//	          ↓            ↓            ↓
//	     ┌────────┐   ┌────────┐   ┌────────┐
//	     │ sink A │   │ sink B │   │ sink C │
//	     └────────┘   └────────┘   └────────┘
//	      /archive     /by-date     /errors
//
// # Running
//
//	filestreams validate --config filestreams.yaml --strict
//	filestreams run --config filestreams.yaml
//	filestreams schema file-sink
//
// See cmd/filestreams for flags and environment variables, and config for
// the configuration layout.
package filestreams
