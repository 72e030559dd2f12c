// Package cryptox holds the pure cryptographic primitives used by the token
// lifecycle: JWT signing and verification, authenticated at-rest encryption,
// entropy-checked random tokens and keyed one-way hashing.
//
// Every type in this package is immutable after construction and safe for
// concurrent use without synchronization.
package cryptox
