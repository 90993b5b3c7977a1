// Package aggregates implements the dedupe write boundaries on GORM. Each write
// runs in one transaction from a TxRunner, composes the table repos in
// internal/data/repos and maps storage failures to aggregate error codes.
package aggregates
