package diag

import "fmt"

type Code uint16

const (
	// UnknownCode is the catch-all.
	UnknownCode Code = 0

	// Conversion failures.
	ConvUnsupportedKind Code = 2001
	ConvOverlap         Code = 2002
	ConvFieldBeyondEnd  Code = 2003
	ConvTooSmall        Code = 2004
	ConvTooBig          Code = 2005
	ConvOverAligned     Code = 2006
	ConvBadCast         Code = 2007
	ConvRelocatable     Code = 2008
	ConvBadIndex        Code = 2009
	ConvBadString       Code = 2010
	ConvBadExpr         Code = 2011

	// Target / layout failures.
	TargetUnknown Code = 3001
)

func (c Code) String() string {
	switch c {
	case ConvUnsupportedKind:
		return "CONV_UNSUPPORTED_KIND"
	case ConvOverlap:
		return "CONV_OVERLAP"
	case ConvFieldBeyondEnd:
		return "CONV_FIELD_BEYOND_END"
	case ConvTooSmall:
		return "CONV_TOO_SMALL"
	case ConvTooBig:
		return "CONV_TOO_BIG"
	case ConvOverAligned:
		return "CONV_OVER_ALIGNED"
	case ConvBadCast:
		return "CONV_BAD_CAST"
	case ConvRelocatable:
		return "CONV_RELOCATABLE"
	case ConvBadIndex:
		return "CONV_BAD_INDEX"
	case ConvBadString:
		return "CONV_BAD_STRING"
	case ConvBadExpr:
		return "CONV_BAD_EXPR"
	case TargetUnknown:
		return "TARGET_UNKNOWN"
	case UnknownCode:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Code(%d)", uint16(c))
	}
}
