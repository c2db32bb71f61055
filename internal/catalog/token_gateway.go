package catalog

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
)

// s3ObjectAPI is the subset of the S3 client used to fetch the gateway
// certificate bundle
type s3ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// gatewayTokenSource obtains a bearer token from a certificate-gated
// gateway endpoint. The PEM bundle fetched from S3 must carry both the
// client certificate and its private key.
type gatewayTokenSource struct {
	objects    s3ObjectAPI
	bucket     string
	key        string
	tokenURL   string
	passphrase string
	decrypter  secrets.Decrypter
	timeout    time.Duration

	decryptOnce sync.Once
	plaintext   string
	decryptErr  error
}

var _ TokenSource = (*gatewayTokenSource)(nil)

// NewGatewayTokenSource creates a token source that authenticates to the
// gateway token endpoint with the client certificate stored at
// certificateURI, using ambient AWS credentials to fetch it
func NewGatewayTokenSource(
	ctx context.Context, tokenURL, certificateURI, passphrase string,
	decrypter secrets.Decrypter, timeout time.Duration,
) (TokenSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewGatewayTokenSourceWithClient(s3.NewFromConfig(cfg), tokenURL, certificateURI, passphrase, decrypter, timeout)
}

// NewGatewayTokenSourceWithClient creates a gateway token source using
// the provided S3 client
func NewGatewayTokenSourceWithClient(
	objects s3ObjectAPI, tokenURL, certificateURI, passphrase string,
	decrypter secrets.Decrypter, timeout time.Duration,
) (TokenSource, error) {
	bucket, key, err := secrets.ParseS3URI(certificateURI)
	if err != nil {
		return nil, err
	}
	return &gatewayTokenSource{
		objects:    objects,
		bucket:     bucket,
		key:        key,
		tokenURL:   tokenURL,
		passphrase: passphrase,
		decrypter:  decrypter,
		timeout:    timeout,
	}, nil
}

// Token fetches the certificate bundle, builds a client around it, and
// posts the passphrase to the gateway token endpoint
func (s *gatewayTokenSource) Token(ctx context.Context) (string, error) {
	passphrase, err := s.resolvePassphrase(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve gateway passphrase: %w", err)
	}

	bundle, err := s.fetchBundle(ctx)
	if err != nil {
		return "", err
	}
	cert, err := tls.X509KeyPair(bundle, bundle)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate bundle s3://%s/%s: %w", s.bucket, s.key, err)
	}

	client := httpclient.NewClientWithTLS(s.timeout, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})

	form := url.Values{}
	if passphrase != "" {
		form.Set("passphrase", passphrase)
	}
	body, err := postFormWithRetry(ctx, client, s.tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token from %s: %w", s.tokenURL, err)
	}

	var resp struct {
		Token string `json:"sm_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse token response from %s: %w", s.tokenURL, err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("gateway endpoint %s returned no token", s.tokenURL)
	}

	logTokenExpiry(ctx, resp.Token)
	return resp.Token, nil
}

// resolvePassphrase returns the passphrase, decrypting it on first use
// when a decrypter is configured
func (s *gatewayTokenSource) resolvePassphrase(ctx context.Context) (string, error) {
	if s.decrypter == nil || s.passphrase == "" {
		return s.passphrase, nil
	}
	s.decryptOnce.Do(func() {
		s.plaintext, s.decryptErr = s.decrypter.Decrypt(ctx, s.passphrase)
	})
	return s.plaintext, s.decryptErr
}

// fetchBundle downloads the PEM certificate bundle from S3
func (s *gatewayTokenSource) fetchBundle(ctx context.Context) ([]byte, error) {
	out, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch certificate bundle s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	bundle, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate bundle s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return bundle, nil
}
