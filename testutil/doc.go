// Package testutil provides helpers for testing file pipelines.
//
// Files:
//
//   - WriteFile and WriteFileAtomic create input files. WriteFileAtomic writes
//     under a ".tmp" name and renames, matching what producers do for a
//     polled directory.
//   - ReadFile returns a file's contents or fails the test.
//
// Bus:
//
//   - RecordingPublisher is a bus.Publisher that stores messages per subject
//     and can be told to fail.
//   - Subscribe attaches a Collector to a subject on any bus.
//   - WaitForMessages and WaitForCount poll every 10ms until enough messages
//     arrive or the timeout passes.
//
// Config:
//
//   - FlowBuilder assembles the components section of an application config.
//
// Integration tests use a real NATS server through natsclient.NewTestClient
// (testcontainers) rather than mocks.
package testutil
