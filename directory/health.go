package directory

import "github.com/jonwraymond/tokenauth/health"

// Checker reports the account store's connectivity as "accounts".
func (d *SQLDirectory) Checker() health.Checker {
	return health.NewPingChecker("accounts", d)
}
