package storage

import "context"

// Disabled stands in when no bucket is configured. Uploads fail loudly,
// deletes are silently accepted so cleanup paths stay simple.
type Disabled struct{}

func NewDisabled() Disabled {
	return Disabled{}
}

func (Disabled) Upload(context.Context, string, string, []byte) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error {
	return nil
}
