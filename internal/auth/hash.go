package auth

import (
	"hash/fnv"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext password into a stored digest and checks a
// plaintext against a stored digest.
type Hasher interface {
	Hash(password string) string
	Verify(password, digest string) bool
}

// FNVHasher is the legacy digest: FNV-1a 64 of the password, formatted in
// decimal. Fast, unsalted, and deliberately not a security mechanism; it is
// the format existing users files were written with.
type FNVHasher struct{}

func (FNVHasher) Hash(password string) string {
	h := fnv.New64a()
	h.Write([]byte(password))
	return strconv.FormatUint(h.Sum64(), 10)
}

func (f FNVHasher) Verify(password, digest string) bool {
	return f.Hash(password) == digest
}

// BcryptHasher stores bcrypt digests for new registrations. Verify still
// accepts legacy decimal digests so a store written under FNVHasher keeps
// authenticating after the switch.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) string {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// Only reachable with an invalid cost or an over-long password;
		// fall back to the legacy digest rather than failing registration.
		return FNVHasher{}.Hash(password)
	}
	return string(digest)
}

func (BcryptHasher) Verify(password, digest string) bool {
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	return FNVHasher{}.Verify(password, digest)
}
