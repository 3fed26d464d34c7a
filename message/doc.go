// Package message defines the unit of data exchanged between filestreams
// components.
//
// A Message is immutable once constructed. Its payload is raw bytes whose
// interpretation is given by its Kind:
//
//	KindBytes      opaque file contents
//	KindText       UTF-8 text (a line, a path, or text file contents)
//	KindReference  JSON FileReference
//	KindMarker     JSON FileMarker (START or END of a line sequence)
//
// Messages produced by the file source always carry the filename,
// relativePath and originalFileRef headers. The contentType header tells
// downstream components how to read the payload.
//
// On network transports messages travel as JSON (see Encode and Decode):
//
//	{"id":"...","kind":"text","payload":"<base64>","headers":{...},"meta":{"created_at":1700000000000}}
package message
