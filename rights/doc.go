// Package rights implements the packed rights buffer: one permission bitmask
// byte per resource offset.
//
// # Encoding
//
// Byte i of a buffer holds the mask for the resource at offset i. Buffers are
// sparse on the right: offsets past the end read as zero (no access), and a nil
// buffer behaves exactly like an empty one. Writes zero-pad the buffer up to the
// written offset. For transport the buffer is rendered as unpadded base64url by
// [Buffer.Encode].
//
// # Architecture boundaries
//
// This package owns the byte layout only. It knows nothing about which
// permission owns which bit or which resource owns which offset; those live in
// the permission and resource catalogs.
//
// # What this package must NOT do
//
//   - Silently wrap out-of-range values on the write path.
//   - Mutate a caller's slice: every write returns a fresh buffer.
//   - Perform I/O.
package rights
