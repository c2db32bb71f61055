package secrets

import (
	"context"
	"encoding/base64"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// kmsAPI is the subset of the KMS client used for credential decryption
type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSDecrypter decrypts values encrypted with an AWS KMS key. Ciphertexts are
// carried base64-encoded in configuration.
type KMSDecrypter struct {
	client kmsAPI
}

var _ Decrypter = (*KMSDecrypter)(nil)

// NewKMSDecrypter creates a KMS decrypter using the ambient AWS configuration
func NewKMSDecrypter(ctx context.Context) (*KMSDecrypter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &KMSDecrypter{client: kms.NewFromConfig(awsCfg)}, nil
}

// NewKMSDecrypterWithClient creates a KMS decrypter with an explicit client
func NewKMSDecrypterWithClient(client kmsAPI) *KMSDecrypter {
	return &KMSDecrypter{client: client}
}

// Decrypt resolves a base64 KMS ciphertext to plaintext
func (d *KMSDecrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}

	out, err := d.client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return "", fmt.Errorf("KMS decryption failed: %w", err)
	}

	return string(out.Plaintext), nil
}
