package utils

// I64Ptr returns a pointer to the given int64 value.
func I64Ptr(v int64) *int64 { return &v }

// StrPtr returns a pointer to the given string value.
func StrPtr(v string) *string { return &v }

// BoolPtr returns a pointer to the given bool value.
func BoolPtr(v bool) *bool { return &v }
