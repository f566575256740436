package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for migrating the encoding.
const (
	DomainFunction = "tensorgen/function/v1"
	DomainModule   = "tensorgen/module/v1"
	DomainTarget   = "tensorgen/target/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FunctionHash is the content address of one function's IR.
func FunctionHash(f *Function) (string, error) {
	canonical, err := MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("FunctionHash %s: %w", f.Name, err)
	}
	return hashWithDomain(DomainFunction, canonical), nil
}

// ModuleHash is the content address of a module: its name, the generator
// version and the ordered function hashes. Reordering functions changes the
// hash because it changes the emitted module.
func ModuleHash(name string, fns []*Function) (string, error) {
	var buf []byte
	buf = appendField(buf, name)
	buf = appendField(buf, GeneratorVersion)
	for _, f := range fns {
		h, err := FunctionHash(f)
		if err != nil {
			return "", err
		}
		buf = appendField(buf, h)
	}
	return hashWithDomain(DomainModule, buf), nil
}

// TargetHash extends a module hash with the target settings the module is
// printed with. Two builds of the same IR for different targets get
// different keys.
func TargetHash(moduleHash, triple, dataLayout string) string {
	var buf []byte
	buf = appendField(buf, moduleHash)
	buf = appendField(buf, triple)
	buf = appendField(buf, dataLayout)
	return hashWithDomain(DomainTarget, buf)
}

// appendField writes a length-prefixed field so adjacent fields cannot merge.
func appendField(buf []byte, s string) []byte {
	buf = fmt.Appendf(buf, "%d:", len(s))
	return append(buf, s...)
}

// MustFunctionHash is like FunctionHash but panics on error.
// Use only in tests or when the tree is known to be well formed.
func MustFunctionHash(f *Function) string {
	h, err := FunctionHash(f)
	if err != nil {
		panic(err)
	}
	return h
}
