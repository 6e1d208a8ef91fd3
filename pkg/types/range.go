package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/objectgate/objectgate/pkg/errors"
)

// ByteRange represents a caller-requested byte range over an object in
// offset/size form. The zero value selects the whole object.
//
// Semantics:
//   - neither offset nor size: the whole object
//   - offset only: from offset to the end of the object
//   - size only: the last size bytes of the object
//   - both: size bytes starting at offset
type ByteRange struct {
	offset    uint64
	size      uint64
	hasOffset bool
	hasSize   bool
}

// RangeAll returns a ByteRange selecting the whole object.
func RangeAll() ByteRange {
	return ByteRange{}
}

// RangeFrom returns a ByteRange selecting everything from offset to the end.
func RangeFrom(offset uint64) ByteRange {
	return ByteRange{offset: offset, hasOffset: true}
}

// RangeLast returns a ByteRange selecting the last size bytes of the object.
func RangeLast(size uint64) ByteRange {
	return ByteRange{size: size, hasSize: true}
}

// NewRange returns a ByteRange selecting size bytes starting at offset.
func NewRange(offset, size uint64) ByteRange {
	return ByteRange{offset: offset, size: size, hasOffset: true, hasSize: true}
}

// Offset returns the requested offset, if any.
func (r ByteRange) Offset() (uint64, bool) {
	return r.offset, r.hasOffset
}

// Size returns the requested size, if any.
func (r ByteRange) Size() (uint64, bool) {
	return r.size, r.hasSize
}

// IsWhole reports whether the range selects the whole object.
func (r ByteRange) IsWhole() bool {
	return !r.hasOffset && !r.hasSize
}

// Header renders the Range request header value for this ByteRange.
// A whole-object range produces no header and returns ok=false.
func (r ByteRange) Header() (string, bool) {
	switch {
	case r.hasOffset && r.hasSize:
		return fmt.Sprintf("bytes=%d-%d", r.offset, r.offset+r.size-1), true
	case r.hasOffset:
		return fmt.Sprintf("bytes=%d-", r.offset), true
	case r.hasSize:
		return fmt.Sprintf("bytes=-%d", r.size), true
	default:
		return "", false
	}
}

// String returns the Range header form, or "" for a whole-object range.
func (r ByteRange) String() string {
	h, _ := r.Header()
	return h
}

// ContentRange represents a server-reported byte range over a resource of
// known or unknown total size, as carried by the Content-Range header:
//
//	Content-Range: bytes <start>-<end>/<size>
//	Content-Range: bytes <start>-<end>/*
//	Content-Range: bytes */<size>
//
// The zero value is not a usable content range. Populate it through
// WithRange and/or WithSize before use.
type ContentRange struct {
	start    uint64
	end      uint64
	total    uint64
	hasRange bool
	hasTotal bool
}

// WithRange returns a copy of c carrying the inclusive range [start, end].
func (c ContentRange) WithRange(start, end uint64) ContentRange {
	c.start, c.end, c.hasRange = start, end, true
	return c
}

// WithSize returns a copy of c carrying the total resource size.
func (c ContentRange) WithSize(total uint64) ContentRange {
	c.total, c.hasTotal = total, true
	return c
}

// Range returns the inclusive range [start, end], if known.
func (c ContentRange) Range() (start, end uint64, ok bool) {
	return c.start, c.end, c.hasRange
}

// RangeExclusive returns the half-open range [start, end+1), if known.
func (c ContentRange) RangeExclusive() (start, end uint64, ok bool) {
	if !c.hasRange {
		return 0, 0, false
	}
	return c.start, c.end + 1, true
}

// Len returns the number of bytes covered by the range, if known.
func (c ContentRange) Len() (uint64, bool) {
	if !c.hasRange {
		return 0, false
	}
	return c.end - c.start + 1, true
}

// TotalSize returns the total resource size, if known.
func (c ContentRange) TotalSize() (uint64, bool) {
	return c.total, c.hasTotal
}

// IsZero reports whether c carries neither a range nor a size.
func (c ContentRange) IsZero() bool {
	return !c.hasRange && !c.hasTotal
}

// String renders c in Content-Range header form. ParseContentRange of the
// result yields c back. An all-unknown value renders as "".
func (c ContentRange) String() string {
	switch {
	case c.hasRange && c.hasTotal:
		return fmt.Sprintf("bytes %d-%d/%d", c.start, c.end, c.total)
	case c.hasRange:
		return fmt.Sprintf("bytes %d-%d/*", c.start, c.end)
	case c.hasTotal:
		return fmt.Sprintf("bytes */%d", c.total)
	default:
		return ""
	}
}

// ToByteRange converts a ContentRange back to the equivalent ByteRange.
// Three outcomes are possible:
//   - the range is known: the closed ByteRange is returned with ok=true;
//   - only the size is known (a HEAD-style response): ok=false with no
//     error, the caller has no range to work with;
//   - neither is known: this cannot come out of ParseContentRange, so it is
//     reported as an internal-consistency fault rather than assumed away.
func (c ContentRange) ToByteRange() (ByteRange, bool, error) {
	switch {
	case c.hasRange:
		return NewRange(c.start, c.end-c.start+1), true, nil
	case c.hasTotal:
		return ByteRange{}, false, nil
	default:
		return ByteRange{}, false, errors.New(errors.KindUnexpected,
			"content range carries neither range nor size").
			WithOperation("ContentRange.ToByteRange")
	}
}

// ContentRangeFromRange computes the absolute content range satisfied by a
// requested ByteRange against an object of known total size. The result
// always carries the total size.
//
// A zero total or a range reaching past the end of the object is a caller
// bug; it is guarded explicitly so the unsigned arithmetic below can never
// wrap.
func ContentRangeFromRange(total uint64, r ByteRange) (ContentRange, error) {
	if total == 0 {
		return ContentRange{}, errors.New(errors.KindUnexpected,
			"content range requested over empty object").
			WithOperation("ContentRangeFromRange")
	}

	offset, hasOffset := r.Offset()
	size, hasSize := r.Size()

	var start, end uint64
	switch {
	case hasOffset && hasSize:
		if size == 0 || offset > total || size > total-offset {
			return ContentRange{}, rangeOutOfBounds(total, r)
		}
		start, end = offset, offset+size-1
	case hasOffset:
		if offset >= total {
			return ContentRange{}, rangeOutOfBounds(total, r)
		}
		start, end = offset, total-1
	case hasSize:
		if size == 0 || size > total {
			return ContentRange{}, rangeOutOfBounds(total, r)
		}
		start, end = total-size, total-1
	default:
		start, end = 0, total-1
	}

	return ContentRange{}.WithRange(start, end).WithSize(total), nil
}

func rangeOutOfBounds(total uint64, r ByteRange) *errors.Error {
	return errors.New(errors.KindUnexpected, "requested range exceeds object size").
		WithOperation("ContentRangeFromRange").
		WithContext("range", r.String()).
		WithContext("total_size", strconv.FormatUint(total, 10))
}

// ParseContentRange parses a Content-Range header value. The unit is always
// "bytes". All parse failures are non-retryable Unexpected errors carrying
// the original header value under the "value" context key.
func ParseContentRange(value string) (ContentRange, error) {
	invalid := func(cause error) *errors.Error {
		err := errors.New(errors.KindUnexpected, "header content range is invalid").
			WithOperation("ParseContentRange").
			WithContext("value", value)
		if cause != nil {
			err = err.WithCause(cause)
		}
		return err
	}

	s, found := strings.CutPrefix(value, "bytes ")
	if !found {
		return ContentRange{}, invalid(nil)
	}

	if size, found := strings.CutPrefix(s, "*/"); found {
		n, err := strconv.ParseUint(size, 10, 64)
		if err != nil {
			return ContentRange{}, invalid(err)
		}
		return ContentRange{}.WithSize(n), nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return ContentRange{}, invalid(nil)
	}

	bounds := strings.Split(parts[0], "-")
	if len(bounds) != 2 {
		return ContentRange{}, invalid(nil)
	}
	start, err := strconv.ParseUint(bounds[0], 10, 64)
	if err != nil {
		return ContentRange{}, invalid(err)
	}
	end, err := strconv.ParseUint(bounds[1], 10, 64)
	if err != nil {
		return ContentRange{}, invalid(err)
	}
	cr := ContentRange{}.WithRange(start, end)

	if parts[1] != "*" {
		total, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return ContentRange{}, invalid(err)
		}
		cr = cr.WithSize(total)
	}

	return cr, nil
}
