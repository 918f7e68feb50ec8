package shared

import "fmt"

// Span is a half-open byte range [Start, End) into the query text.
type Span struct {
	Start uint32
	End   uint32
}

func NewSpan(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: uint32(start), End: uint32(end)}
}

func (s Span) Len() int {
	return int(s.End - s.Start)
}

func (s Span) IsEmpty() bool {
	return s.Start == s.End
}

// Contains reports whether offset falls inside the span or touches its end.
func (s Span) Contains(offset int) bool {
	return offset >= int(s.Start) && offset <= int(s.End)
}

// Cover returns the smallest span containing both s and o.
func (s Span) Cover(o Span) Span {
	res := s
	if o.Start < res.Start {
		res.Start = o.Start
	}
	if o.End > res.End {
		res.End = o.End
	}
	return res
}

// Text returns the substring of src the span refers to. Out of range spans are clamped.
func (s Span) Text(src string) string {
	start, end := int(s.Start), int(s.End)
	if start > len(src) {
		start = len(src)
	}
	if end > len(src) {
		end = len(src)
	}
	return src[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
