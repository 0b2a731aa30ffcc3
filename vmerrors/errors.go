package vmerrors

import (
	"errors"
	"strings"
)

// Machine (V) Errors
var (
	ErrOutOfBounds            = errors.New("V1|OutOfBounds: Memory access out of bounds.")
	ErrInvalidMemory          = errors.New("V2|InvalidMemory: No program image loaded.")
	ErrInvalidRegister        = errors.New("V3|InvalidRegister: Register index not addressable by this operation.")
	ErrTypeMismatch           = errors.New("V4|TypeMismatch: Register holds a value of another type.")
	ErrInvalidOpcode          = errors.New("V5|InvalidOpcode: No handler bound to opcode.")
	ErrInvalidSize            = errors.New("V6|InvalidSize: Memory operand wider than 8 bytes.")
	ErrDivideByZero           = errors.New("V7|DivideByZero: Divide by zero.")
	ErrReadOnlyViolation      = errors.New("V8|ReadOnlyViolation: Write into the read-only program image.")
	ErrInvalidHeapAccess      = errors.New("V9|InvalidHeapAccess: Address not covered by any heap segment.")
	ErrUnimplementedInfoEntry = errors.New("V10|UnimplementedInfoEntry: Unimplemented info entry.")
	ErrInvalidComparison      = errors.New("V11|InvalidComparison: Invalid comparison in jump.")
	ErrHeapExhausted          = errors.New("V12|HeapExhausted: Heap allocation exceeds the heap limit.")
)

// All lists every machine error kind in code order.
var All = []error{
	ErrOutOfBounds,
	ErrInvalidMemory,
	ErrInvalidRegister,
	ErrTypeMismatch,
	ErrInvalidOpcode,
	ErrInvalidSize,
	ErrDivideByZero,
	ErrReadOnlyViolation,
	ErrInvalidHeapAccess,
	ErrUnimplementedInfoEntry,
	ErrInvalidComparison,
	ErrHeapExhausted,
}

// Kind returns the first machine error kind err wraps, or nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range All {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// GetErrorName extracts the error name from the error message.
// Wrapped errors resolve to the kind they wrap.
func GetErrorName(err error) string {
	if err == nil {
		return ""
	}
	if kind := Kind(err); kind != nil {
		err = kind
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	names := make([]string, len(errs))
	for i, err := range errs {
		names[i] = GetErrorName(err)
	}
	return names
}

// GetErrorCode extracts the error code, e.g. "V7".
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if kind := Kind(err); kind != nil {
		err = kind
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns "Code_Name", e.g. "V7_DivideByZero".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the description of the error kind.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	if kind := Kind(err); kind != nil {
		err = kind
	}
	parts := strings.SplitN(err.Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
