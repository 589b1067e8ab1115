package middleware

import (
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"net"
	"net/http"
	"strings"
)

// ProfilerMiddleware opens a profile for every routed request and guarantees it is finalized,
// including when the handler panics. The panic is re-raised once the profile is finalized.
func ProfilerMiddleware(
	lc service.LifecycleController,
	storeID string,
	logger *zap.Logger,
) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// subrouters run the middleware again for the same request
			if _, ok := service.ScopeFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			scope := lc.OnRequestStart(model.RequestMeta{
				StoreID:       storeID,
				ClientAddress: clientAddress(r),
				Method:        r.Method,
				Path:          r.URL.Path,
			})
			r = r.WithContext(service.ContextWithScope(r.Context(), scope))
			if !scope.Capturing() {
				next.ServeHTTP(w, r)
				return
			}

			rw := newResponseWriter(w)
			action := routedAction(r)
			defer func() {
				if p := recover(); p != nil {
					status := http.StatusInternalServerError
					if rw.Written() {
						status = rw.StatusCode()
					}
					logger.Warn(
						"Handler panicked, finalizing profile",
						zap.String("token", scope.Profile().Token()),
						zap.Any("panic", p),
					)
					lc.Finalize(scope, service.ResponseInfo{StatusCode: status})
					panic(p)
				}
				// no-op unless the normal completion path was skipped
				lc.Finalize(scope, service.ResponseInfo{StatusCode: rw.StatusCode()})
			}()

			lc.OnPreAction(scope, action)
			next.ServeHTTP(rw, r)
			action.Outcome = rw.StatusCode()
			lc.OnPostAction(scope, action)
			lc.OnRequestEnd(scope, service.ResponseInfo{StatusCode: rw.StatusCode()})
		})
	}
}

// routedAction names the action after the matched route. A route named "product.view" is
// controller "product" and action "view"; unnamed routes use the path template and method.
func routedAction(r *http.Request) service.ActionInfo {
	action := service.ActionInfo{Controller: r.URL.Path, Action: r.Method}
	route := mux.CurrentRoute(r)
	if route == nil {
		return action
	}
	if template, err := route.GetPathTemplate(); err == nil {
		action.Route = template
		action.Controller = template
	}
	if name := route.GetName(); name != "" {
		controller, act, found := strings.Cut(name, ".")
		action.Controller = controller
		if found {
			action.Action = act
		}
	}
	return action
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
