package ir

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainBundle = "appcore/bundle/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BundleHash computes a stable identity for (method, bundle).
// authData is excluded: the same logical call made with rotated credentials
// hashes the same, and secrets never reach the digest input.
func BundleHash(method string, b *Bundle) (string, error) {
	if b == nil {
		b = NewBundle()
	}
	data := b.TemplateData()
	delete(data, "authData")
	if b.Request != nil {
		data["request"] = b.Request
	}

	canonical, err := MarshalCanonical(map[string]any{
		"method": method,
		"bundle": data,
	})
	if err != nil {
		return "", fmt.Errorf("BundleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBundle, canonical), nil
}

// MustBundleHash is like BundleHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBundleHash(method string, b *Bundle) string {
	h, err := BundleHash(method, b)
	if err != nil {
		panic(err)
	}
	return h
}

// Digest returns the lowercase hex digest of text. Supported algorithms are
// md5, sha1, sha256 and sha512.
func Digest(algorithm, text string) (string, error) {
	var h hash.Hash
	switch strings.ToLower(algorithm) {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), nil
}
