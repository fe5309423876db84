// Package stores provides the persistence layer for medication orders.
// It includes an XML document store, a relational store (MySQL or SQLite)
// with connection retry and database/table auto-creation, and a Selector
// that routes every operation to one of them.
package stores
