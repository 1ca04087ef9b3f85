// Package auth implements password authentication, signed bearer tokens and
// a layered authorization pipeline.
//
// The flow is:
//
//	Authenticator.Authenticate(id, secret) -> *Account
//	TokenCodec.Issue(account.ID, ttl)      -> *Token (returned to the client)
//	SessionResolver.Resolve(token)         -> *Session (per request)
//	Operation.Authorize(session)           -> *Result or *DenialError
//
// Accounts live in a Directory. Passwords are stored as PasswordHasher
// output (bcrypt by default). Tokens are HS256 JWTs carrying the subject,
// issue time, expiry and a unique ID.
//
// Authorization is a list of named Checks evaluated in order, stopping at the
// first denial. Checks are attached at three scopes: process-wide on a Guard,
// per Group, and per Operation. An operation always runs the process-wide
// checks first, then its groups' checks, then its own.
//
// Errors classify into a small set of outcomes (see Classify). Clients only
// ever see the generic message for an outcome (see PublicMessage); the
// specific reason is available to logs and metrics through FailureReason.
package auth
