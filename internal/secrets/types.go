// Package secrets resolves encrypted provider and catalog credentials.
package secrets

import (
	"context"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_decrypter.go -package=mocks -source=types.go Decrypter

// Decrypter decodes an encrypted credential value into plaintext.
type Decrypter interface {
	// Decrypt returns the plaintext for the given ciphertext
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// Plaintext returns values unchanged, for configurations whose secrets are
// not encrypted.
type Plaintext struct{}

var _ Decrypter = (*Plaintext)(nil)

// Decrypt returns the value as-is
func (*Plaintext) Decrypt(_ context.Context, value string) (string, error) {
	return value, nil
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key
func ParseS3URI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URI: %s", uri)
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URI must name a bucket and key: %s", uri)
	}

	return bucket, key, nil
}
