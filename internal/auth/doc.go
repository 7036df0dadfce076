// Package auth authenticates the show operator for the control API.
//
// There is a single configured operator account. Its password is stored as
// an Argon2id PHC string (security.operator.password_hash) and never in
// plain text; "lightshow hash-password" prints one. A successful login is
// exchanged for a short-lived HS256 JWT that the API checks on every
// protected request without touching storage.
package auth
