// Package secret resolves KMS-encrypted configuration values at cold start.
package secret

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSAPI defines the KMS operations required for decryption.
type KMSAPI interface {
	Decrypt(
		ctx context.Context,
		input *kms.DecryptInput,
		optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Decrypter decrypts base64-encoded KMS ciphertexts.
type Decrypter struct {
	client            KMSAPI
	encryptionContext map[string]string
}

// NewDecrypter creates a new Decrypter. encryptionContext may be nil; when the
// value was encrypted through the Lambda console helpers it must carry
// {"LambdaFunctionName": <name>}.
func NewDecrypter(client KMSAPI, encryptionContext map[string]string) *Decrypter {
	return &Decrypter{
		client:            client,
		encryptionContext: encryptionContext,
	}
}

// DecryptString base64-decodes ciphertext and returns the KMS plaintext as a string.
func (d *Decrypter) DecryptString(ctx context.Context, ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("cannot decode ciphertext: %w", err)
	}

	out, err := d.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: d.encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("cannot decrypt ciphertext: %w", err)
	}

	if len(out.Plaintext) == 0 {
		return "", errors.New("decrypted plaintext is empty")
	}

	return string(out.Plaintext), nil
}
