package core

// Kind classifies a lookup or interaction failure.
type Kind int

const (
	KindUnknown              Kind = iota // Unclassified driver failure, original message preserved
	KindNotVisible                       // Found but not rendered visible / not interactable
	KindStaleReference                   // Handle invalidated by page mutation
	KindInvalidState                     // Driver rejects the interaction given element state
	KindOutOfBounds                      // Interaction point outside viewport/element
	KindNoWindow                         // Window handle invalid
	KindNoFrame                          // Frame handle invalid
	KindNotFound                         // No match for selector
	KindUnsupportedOperation             // Driver does not support the operation
	KindBadTagName                       // Wrong element type for the requested operation
	KindTimeout                          // Wait-phase deadline exceeded
	KindNullArgument                     // Caller passed an empty selector or nil value
	KindInvalidIndex                     // Caller asked for a match index that does not exist
)

// String returns the machine-readable code of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotVisible:
		return "element_not_visible"
	case KindStaleReference:
		return "stale_reference"
	case KindInvalidState:
		return "invalid_element_state"
	case KindOutOfBounds:
		return "move_target_out_of_bounds"
	case KindNoWindow:
		return "no_such_window"
	case KindNoFrame:
		return "no_such_frame"
	case KindNotFound:
		return "element_not_found"
	case KindUnsupportedOperation:
		return "unsupported_operation"
	case KindBadTagName:
		return "bad_tag_name"
	case KindTimeout:
		return "timeout"
	case KindNullArgument:
		return "null_argument"
	case KindInvalidIndex:
		return "invalid_index"
	default:
		return "unknown"
	}
}

// Family returns the severity family of the kind.
func (k Kind) Family() Family {
	switch k {
	case KindNullArgument, KindInvalidIndex:
		return FamilyInternal
	default:
		return FamilyPublic
	}
}

// Transient reports whether a failure of this kind is expected to clear
// on its own while an element is still settling.
func (k Kind) Transient() bool {
	return k == KindNotFound || k == KindStaleReference
}

// Kinds returns the known driver-failure kinds in match priority order.
// A failure that could be read as several kinds is reported as the first.
func Kinds() []Kind {
	return []Kind{
		KindNotVisible,
		KindStaleReference,
		KindInvalidState,
		KindOutOfBounds,
		KindNoWindow,
		KindNoFrame,
		KindNotFound,
		KindUnsupportedOperation,
		KindBadTagName,
		KindTimeout,
	}
}

// ParseKind returns the kind for a code produced by Kind.String.
func ParseKind(code string) (Kind, bool) {
	for k := KindUnknown; k <= KindInvalidIndex; k++ {
		if k.String() == code {
			return k, true
		}
	}
	return KindUnknown, false
}

// Family separates caller defects from environment failures.
type Family int

const (
	FamilyPublic   Family = iota // The page or environment is at fault
	FamilyInternal               // The calling test or framework code is at fault
)

// String returns the string representation of Family
func (f Family) String() string {
	switch f {
	case FamilyInternal:
		return "internal"
	default:
		return "public"
	}
}
