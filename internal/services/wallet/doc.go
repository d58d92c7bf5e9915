// Package wallet implements the user-facing side of the credit ledger:
// wallet lookup, balance projection and consumption.
//
// Balances are never trusted from the cached column. Every debit
// authorization recomputes the balance by summing the wallet's
// transaction log inside the same database transaction that appends the
// debit, with the wallet row held under a row-level lock so concurrent
// consumers serialize. The cached balance column and the Redis layer
// exist only for read endpoints and are refreshed transactionally
// alongside each append.
package wallet
