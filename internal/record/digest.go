package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix allows the
// algorithm to change without colliding with old digests.
const (
	DomainRecord     = "generic-rest/record/v1"
	DomainCollection = "generic-rest/collection/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of a record. Two records with equal
// fields always share a digest, independent of map iteration order.
func Digest(r Record) (string, error) {
	canonical, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("record digest: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// CollectionDigest returns the content digest of a whole store snapshot.
func CollectionDigest(c map[string]Record) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("collection digest: %w", err)
	}
	return hashWithDomain(DomainCollection, canonical), nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when the record is known to be valid.
func MustDigest(r Record) string {
	d, err := Digest(r)
	if err != nil {
		panic(err)
	}
	return d
}
