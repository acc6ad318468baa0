// Package bridge converts between the ledger and the flat files operators
// exchange with it: CSV import sheets in, CSV exports out.
package bridge
