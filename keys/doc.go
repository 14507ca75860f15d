// Package keys provides local-first key management for attesters and raters.
//
// Stable:
//   - Pure, deterministic primitives for attester-key formatting and
//     role-seed derivation.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore and related helpers). These are
//     local utilities and are not part of the protocol contract.
package keys
