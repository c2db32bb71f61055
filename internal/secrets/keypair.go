package secrets

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectFetcher is the subset of the S3 client used to retrieve stored key
// material. Satisfied by *s3.Client.
type objectFetcher interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// KeyPairDecrypter decrypts values with an RSA private key held as a PEM
// object in a system bucket. This is the legacy strategy that predates KMS
// managed keys.
type KeyPairDecrypter struct {
	fetcher objectFetcher
	bucket  string
	key     string

	loadOnce sync.Once
	private  *rsa.PrivateKey
	loadErr  error
}

var _ Decrypter = (*KeyPairDecrypter)(nil)

// NewKeyPairDecrypter creates a keypair decrypter reading the private key
// from the given bucket and key using the ambient AWS configuration
func NewKeyPairDecrypter(ctx context.Context, bucket, key string) (*KeyPairDecrypter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewKeyPairDecrypterWithFetcher(s3.NewFromConfig(awsCfg), bucket, key), nil
}

// NewKeyPairDecrypterWithFetcher creates a keypair decrypter with an explicit
// object fetcher
func NewKeyPairDecrypterWithFetcher(fetcher objectFetcher, bucket, key string) *KeyPairDecrypter {
	return &KeyPairDecrypter{
		fetcher: fetcher,
		bucket:  bucket,
		key:     key,
	}
}

// Decrypt resolves a base64 RSA-OAEP ciphertext to plaintext. The private key
// is fetched on first use and reused for the rest of the invocation.
func (d *KeyPairDecrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	d.loadOnce.Do(func() {
		d.private, d.loadErr = d.loadPrivateKey(ctx)
	})
	if d.loadErr != nil {
		return "", fmt.Errorf("failed to load private key: %w", d.loadErr)
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, d.private, blob, nil)
	if err != nil {
		return "", fmt.Errorf("RSA decryption failed: %w", err)
	}

	return string(plaintext), nil
}

func (d *KeyPairDecrypter) loadPrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	out, err := d.fetcher.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key object s3://%s/%s: %w", d.bucket, d.key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	pemData, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read key object: %w", err)
	}

	return parseRSAPrivateKey(pemData)
}

// parseRSAPrivateKey accepts both PKCS#1 and PKCS#8 encoded RSA keys
func parseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("key object contains no PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return rsaKey, nil
}
