package main

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/health"
	"github.com/jonwraymond/tokenauth/transport/httpauth"
)

// Shared secrets checked by the /items/ group.
const (
	itemsToken = "fake-super-secret-token"
	itemsKey   = "fake-super-secret-key"
)

// permissions maps roles to "resource:action" grants for /admin/.
var permissions = auth.RBACConfig{
	Roles: map[string]auth.RoleConfig{
		"admin":  {Permissions: []string{"*:*"}},
		"editor": {Permissions: []string{"items:*"}, Inherits: []string{"viewer"}},
		"viewer": {Permissions: []string{"items:read"}},
	},
}

type accountView struct {
	ID         string            `json:"id"`
	Active     bool              `json:"active"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type itemView struct {
	ItemID string `json:"item_id"`
	Owner  string `json:"owner,omitempty"`
	Token  string `json:"token,omitempty"`
}

func (a *app) routes() http.Handler {
	guard := auth.NewGuard().Instrument(a.mw)
	signedIn := guard.Group("users", auth.Authenticated(), auth.AccountActive())
	items := guard.Group("items",
		auth.RequireHeader("X-Token", itemsToken),
		auth.RequireHeader("X-Key", itemsKey),
	)
	rbac := auth.NewRBAC(permissions)

	protect := func(op *auth.Operation, opts ...httpauth.Option) func(http.Handler) http.Handler {
		return httpauth.Middleware(a.resolver, op, append(opts, httpauth.WithLogger(a.logger))...)
	}

	mux := http.NewServeMux()

	tokenOpts := []httpauth.Option{httpauth.WithLogger(a.logger)}
	if a.limiter != nil {
		tokenOpts = append(tokenOpts, httpauth.WithRateLimit(a.limiter, nil))
	}
	mux.Handle("POST /token", httpauth.TokenHandler(a.authn, a.codec, tokenOpts...))

	mux.Handle("GET /users/me", protect(signedIn.Operation("read_me"))(http.HandlerFunc(a.readMe)))
	mux.Handle("GET /users/me/items", protect(signedIn.Operation("read_own_items"))(http.HandlerFunc(a.readOwnItems)))
	mux.Handle("POST /logout", protect(signedIn.Operation("logout"))(http.HandlerFunc(a.logout)))

	mux.Handle("GET /items/", protect(items.Operation("read_items"), httpauth.OptionalToken())(http.HandlerFunc(a.readItems)))
	mux.Handle("PUT /items/{id}", protect(items.Operation("update_item",
		auth.Authenticated(),
		auth.AccountActive(),
		auth.HasAttribute("scope", "items:write"),
	))(http.HandlerFunc(a.updateItem)))

	mux.Handle("GET /admin/", protect(signedIn.Operation("admin", auth.RequirePermission(rbac, "admin:read")))(http.HandlerFunc(a.admin)))

	health.RegisterHandlers(mux, a.health)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
	return mux
}

func (a *app) readMe(w http.ResponseWriter, r *http.Request) {
	acct := auth.AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, accountView{ID: acct.ID, Active: acct.Active, Attributes: acct.Attributes})
}

func (a *app) readOwnItems(w http.ResponseWriter, r *http.Request) {
	acct := auth.AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, []itemView{{ItemID: "Foo", Owner: acct.ID}})
}

func (a *app) readItems(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.ResultFromContext(r.Context()).Value("header:X-Token")
	s, _ := token.(string)
	writeJSON(w, http.StatusOK, []itemView{{ItemID: "Foo", Token: s}, {ItemID: "Bar", Token: s}})
}

func (a *app) updateItem(w http.ResponseWriter, r *http.Request) {
	acct := auth.AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, itemView{ItemID: r.PathValue("id"), Owner: acct.ID})
}

func (a *app) admin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"admin": auth.AccountFromContext(r.Context()).ID})
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	s := auth.SessionFromContext(r.Context())
	if err := a.resolver.Revoke(r.Context(), s.Token); err != nil {
		httpauth.LogFailure(r.Context(), a.logger, "logout", err)
		httpauth.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
