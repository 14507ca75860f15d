// Package model defines the wire-level request/response types and the stable
// error taxonomy shared by the verification ledger, the rating aggregator and
// the RPC surface.
package model
