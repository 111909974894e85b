// Package cryptox implements the vault's symmetric cipher, the auxiliary
// public-key path, and the password generator.
//
// # Cipher format
//
// Vault blobs are encrypted with AES-256-CBC and PKCS7 padding. The key is the
// UTF-8 encoding of the lowercase hex MD5 digest of the secret (32 bytes).
// The IV is the first 16 bytes of the hex MD5 digest of "password-xl", the
// same for every message. Ciphertext is hex encoded.
//
// The constant IV means equal plaintexts under the same secret produce equal
// ciphertexts. It is kept because existing vaults on every backend were
// written in this format and must stay readable.
//
// Decrypt never returns an error: any failure (bad hex, bad padding, invalid
// UTF-8) yields the empty string, which callers treat as "wrong secret".
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/peng0105/password-xl/internal/common"
)

var fixedIV = deriveIV()

func deriveIV() []byte {
	sum := md5.Sum([]byte(common.AppName))
	return []byte(hex.EncodeToString(sum[:]))[:aes.BlockSize]
}

// DeriveKey digests secret into the 32-byte AES key.
func DeriveKey(secret string) []byte {
	sum := md5.Sum([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

// Encrypt encrypts plaintext under secret and returns hex ciphertext.
func Encrypt(secret, plaintext string) string {
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		// key length is fixed at 32, so this cannot happen
		panic(err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, fixedIV).CryptBlocks(out, padded)

	return hex.EncodeToString(out)
}

// Decrypt reverses Encrypt. It returns "" when ciphertext was not produced
// under secret or is corrupted.
func Decrypt(secret, ciphertext string) string {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return ""
	}

	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return ""
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, fixedIV).CryptBlocks(out, raw)
	defer common.WipeByteArray(out)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil || !utf8.Valid(plain) {
		return ""
	}

	return string(plain)
}

// CheckSecret reports whether secret decrypts ciphertext to non-empty text.
func CheckSecret(secret, ciphertext string) bool {
	return Decrypt(secret, ciphertext) != ""
}

// DecryptStrict is Decrypt with a typed failure, for callers that propagate errors.
func DecryptStrict(secret, ciphertext string) (string, error) {
	plain := Decrypt(secret, ciphertext)
	if plain == "" {
		return "", common.ErrDecrypt
	}
	return plain, nil
}

var errPadding = errors.New("invalid padding")

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errPadding
		}
	}
	res := make([]byte, len(b)-n)
	copy(res, b)
	return res, nil
}

// EncryptWithPublicKey encrypts plaintext with RSA-OAEP/SHA-256 under a PEM
// encoded SPKI public key and returns base64 ciphertext.
func EncryptWithPublicKey(publicKeyPEM, plaintext string) (string, error) {
	blk, _ := pem.Decode([]byte(publicKeyPEM))
	if blk == nil {
		return "", fmt.Errorf("public key: no PEM block found")
	}

	key, err := x509.ParsePKIXPublicKey(blk.Bytes)
	if err != nil {
		return "", fmt.Errorf("public key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("public key: expected RSA, got %T", key)
	}

	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, rsaKey, []byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(out), nil
}
