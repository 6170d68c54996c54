package caption

import "fmt"

// ProviderError wraps any failure of the captioning service: upload, request,
// or an unusable response.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("caption provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
