// Package types defines the value types shared across backends and layers:
// object metadata, caller-requested byte ranges, and server-reported content
// ranges, together with the arithmetic that reconciles the two range forms.
//
// ByteRange and ContentRange are immutable values; every refinement
// (WithRange, WithSize) produces a new value. Both render to and parse from
// the corresponding HTTP header forms, so the same types flow from a caller
// request down to the wire and back.
package types
