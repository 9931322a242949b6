package middleware

import (
	"net/http"

	"github.com/davidbz/promptrelay/internal/config"
)

// Middleware wraps an http.Handler with additional functionality.
// Middlewares can be composed using the Chain function.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares so the first one sees the request first.
// The relay runs CORS outermost so preflights never reach Trace or the
// generate handler:
//
//	relay := Chain(CORS(&cfg.CORS), Trace())(mux)
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		// Apply in reverse order so first middleware wraps outermost.
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// BuildMiddlewareChain is the DI constructor for the relay's chain.
func BuildMiddlewareChain(corsConfig *config.CORSConfig) Middleware {
	return Chain(
		CORS(corsConfig),
		Trace(),
	)
}
