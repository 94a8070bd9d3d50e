// Package auth authenticates dashboard operators and maps their roles to
// fleet permissions.
//
// Operators log in with a username and password (Argon2id hashes in
// SQLite) and receive a short-lived HS256 JWT. Middleware stores the parsed
// claims in the request context; Permissions reads them back to gate comment
// writes, selection changes and bulk actions.
//
// Roles are viewer, operator and admin. The mapping is static.
package auth
