//go:build debug_mem_utils

package memutils

const (
	// DebugEnabled reports whether memutils was built with the debug_mem_utils build tag
	DebugEnabled bool = true
)

// DebugFill writes pattern across every byte of data, making uninitialized or stale payloads
// easy to identify. This method no-ops unless the debug_mem_utils build tag is present.
func DebugFill(data []byte, pattern uint8) {
	for i := range data {
		data[i] = pattern
	}
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
