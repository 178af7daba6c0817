// Package sku defines the canonical product identifier domain: vendor code
// canonicalization, deterministic collision suffixes, and generation outcomes.
package sku

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Outcome classifies the result of a generation attempt.
type Outcome string

const (
	OutcomeInserted           Outcome = "inserted"
	OutcomeConflictResolved   Outcome = "conflict_resolved"
	OutcomeConflictUnresolved Outcome = "conflict_unresolved"
	OutcomeError              Outcome = "error"
)

const (
	// MaxLength bounds the canonical_sku column.
	MaxLength = 64

	// SlugMaxLength bounds the canonicalized vendor code before the
	// namespace prefix is applied.
	SlugMaxLength = 40

	// SuffixBaseLength is the collision suffix length on the first retry;
	// each further retry adds one character, capped at SuffixCapLength.
	SuffixBaseLength = 6
	SuffixCapLength  = 10
)

// base36Alphabet is the digit set for collision suffixes.
const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Canonicalize normalizes a raw vendor code into a slug: uppercase, strip
// every rune outside [A-Z0-9], truncate to maxLen. Empty input yields an
// empty slug, which callers must treat as a validation failure.
// Idempotent: Canonicalize(Canonicalize(x, n), n) == Canonicalize(x, n).
func Canonicalize(raw string, maxLen int) string {
	if raw == "" || maxLen <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}

// ShortHash derives a deterministic fixed-length suffix from value: the first
// 48 bits of the SHA-1 digest rendered as base-36 digits, least significant
// digit first, uppercase. Identical inputs always yield identical suffixes so
// collision resolution is reproducible across process restarts.
func ShortHash(value string, length int) string {
	if length <= 0 {
		return ""
	}
	sum := sha1.Sum([]byte(value)) //nolint:gosec // deterministic suffix derivation, not a security boundary
	hexDigest := hex.EncodeToString(sum[:])
	val, _ := strconv.ParseUint(hexDigest[:12], 16, 64)

	out := make([]byte, 0, length)
	for len(out) < length {
		out = append(out, base36Alphabet[val%36])
		val /= 36
	}
	return string(out)
}

// SuffixLength returns the collision suffix length for the given retry
// attempt (0-based): SuffixBaseLength+attempt, capped at SuffixCapLength.
func SuffixLength(attempt int) int {
	n := SuffixBaseLength + attempt
	if n > SuffixCapLength {
		n = SuffixCapLength
	}
	return n
}

// Record is a persisted canonical identifier with its provenance.
type Record struct {
	ID           string    `json:"id"`
	VendorID     string    `json:"vendor_id"`
	VendorCode   string    `json:"vendor_code"`
	CanonicalSKU string    `json:"canonical_sku"`
	CreatedAt    time.Time `json:"created_at"`
}

// Result is the outcome of one generation call. CanonicalSKU is empty unless
// the outcome is inserted or conflict_resolved.
type Result struct {
	CanonicalSKU string  `json:"canonical_sku"`
	Outcome      Outcome `json:"outcome"`
	Attempts     int     `json:"attempts"`
}

// GenerateRequest holds the fields needed to generate a canonical identifier.
type GenerateRequest struct {
	RawCode         string `json:"raw_code"`
	VendorID        string `json:"vendor_id"`
	VendorNamespace string `json:"vendor_namespace"`
}

var (
	ErrRawCodeRequired   = errors.New("raw_code is required")
	ErrVendorRequired    = errors.New("vendor_id is required")
	ErrNamespaceRequired = errors.New("vendor_namespace is required")
	ErrUnusableRawCode   = errors.New("raw_code contains no usable characters")
)

// Validate checks the generate request for correctness.
func (r *GenerateRequest) Validate() error {
	if r.RawCode == "" {
		return ErrRawCodeRequired
	}
	if r.VendorID == "" {
		return ErrVendorRequired
	}
	if r.VendorNamespace == "" {
		return ErrNamespaceRequired
	}
	return nil
}
