package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// HandlerFunc handles one routed button press. id is zero for exact routes.
type HandlerFunc[T any] func(ctx context.Context, t T, id int64) error

type route[T any] struct {
	pattern *regexp.Regexp
	handler HandlerFunc[T]
}

// Router maps callback data to handlers. Parameterised routes are anchored on
// both ends so that no two of them can match the same identifier, whatever
// the registration order.
type Router[T any] struct {
	exact    map[string]HandlerFunc[T]
	prefixed []route[T]
}

func NewRouter[T any]() *Router[T] {
	return &Router[T]{exact: make(map[string]HandlerFunc[T])}
}

func (r *Router[T]) Exact(action string, handler HandlerFunc[T]) *Router[T] {
	r.exact[action] = handler
	return r
}

// Prefixed registers a route matching prefix followed by a decimal id.
func (r *Router[T]) Prefixed(prefix string, handler HandlerFunc[T]) *Router[T] {
	pattern := regexp.MustCompile(fmt.Sprintf(`^%s(\d+)$`, regexp.QuoteMeta(prefix)))
	r.prefixed = append(r.prefixed, route[T]{pattern: pattern, handler: handler})
	return r
}

// Match returns the handler for data and the id it carries.
func (r *Router[T]) Match(data string) (HandlerFunc[T], int64, bool) {
	if handler, ok := r.exact[data]; ok {
		return handler, 0, true
	}
	for _, rt := range r.prefixed {
		groups := rt.pattern.FindStringSubmatch(data)
		if groups == nil {
			continue
		}
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return nil, 0, false
		}
		return rt.handler, id, true
	}
	return nil, 0, false
}
