// Package config loads tokenauth host configuration from TOKENAUTH_
// environment variables, an optional dotenv file and secret references.
//
// The signing key may be given inline or as a reference resolved through
// package secret:
//
//	TOKENAUTH_SIGNING_KEY=secretref:file:/run/secrets/signing_key
//	TOKENAUTH_SIGNING_KEY=secretref:env:SIGNING_KEY
//
// Every other variable has a default; see the Default constants.
package config
