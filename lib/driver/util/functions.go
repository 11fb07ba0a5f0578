package util

// CopyBytes returns a copy of b so callers can not modify stored values
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
