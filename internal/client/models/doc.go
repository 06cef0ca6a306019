// Package models defines the client-side projections of backend data used
// by the CipherSafe client: the session, stored credential items, and the
// request values exchanged with the backend.
//
// Decrypted item passwords are deliberately absent from Item. They only
// exist inside an open disclosure dialog (see package disclosure).
package models
