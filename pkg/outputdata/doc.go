// Package outputdata parses the binary payloads the build returns each frame
// into typed values: object transforms, rigidbody state, collisions, robot
// joints, scene regions, audio playback state, and build metadata.
//
// Every payload begins with a 4-byte ASCII type identifier followed by a
// little-endian body. Unknown identifiers parse to a Raw payload rather than
// an error so that a controller stays usable against newer builds.
package outputdata
