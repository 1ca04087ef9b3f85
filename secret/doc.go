// Package secret resolves configuration values that must not live in plain
// configuration, such as the token signing key and database credentials.
//
// A value is either used as is (after strict ${VAR} expansion) or is a
// reference of the form:
//
//	secretref:<provider>:<ref>
//
// Two providers are built in: "env" reads another environment variable and
// "file" reads a mounted file (trailing newlines trimmed). References may
// also appear inline, as in a DSN:
//
//	postgres://auth:secretref:file:/run/secrets/db_password@db/auth
//
// Resolved values are never logged.
package secret
