// Package todo stores task items and enforces single-owner access to them.
//
// Ownership is checked inside the same statement or transaction that reads or
// mutates a row, so there is no window between check and use. Callers pass the
// authenticated account id; an item's owner is fixed at creation.
package todo
