package tinyinject

import "net/http"

// DecorateHandler runs every request in its own Scope,
// carried by the request context and closed when the handler returns.
//
//	http.Handle("/", tinyinject.DecorateHandler(injector, handler))
//
//	func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
//		scope, _ := tinyinject.ScopeFromContext(req.Context())
//		users, err := tinyinject.Resolve[UserRepository](scope)
//		...
//	}
func DecorateHandler(inj *Injector, h http.Handler, opts ...ScopeOption) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		scope := inj.CreateScope(opts...)
		defer func() {
			if err := scope.Close(); err != nil {
				inj.logger.Error("closing request scope", "scope", scope.ID(), "path", req.URL.Path, "error", err)
			}
		}()

		h.ServeHTTP(w, req.WithContext(ContextWithScope(req.Context(), scope)))
	})
}
