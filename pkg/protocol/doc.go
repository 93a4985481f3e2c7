// Package protocol defines the wire protocol between a controller and a
// simulation build. Requests are JSON arrays of command objects, each carrying
// a "$type" discriminator. Responses are multipart binary frames: a sequence of
// length-prefixed payloads, each tagged with a 4-byte type identifier, followed
// by the build's frame number.
//
// The build dictates this protocol; the package exists so that the rest of the
// repository never touches raw bytes directly.
package protocol
