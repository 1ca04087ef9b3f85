// Package observe provides observability primitives for authentication stages.
//
// It wraps OpenTelemetry tracing and metrics and a redacting JSON logger
// behind small interfaces. Stages such as credential verification, token
// resolution and authorization are wrapped with Middleware, which records a
// span, a counter and a duration histogram per stage and labels failures
// with a low-cardinality reason. Error text is never exported, because an
// authentication error may describe which check failed.
package observe
