package main

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// Минимальный маршрутизатор поверх fasthttp: метод + сегменты пути,
// сегменты вида ":name" попадают в ctx.UserValue(name).
type route struct {
	method   string
	segments []string
	handler  fasthttp.RequestHandler
}

type router struct {
	routes []route
}

func newRouter() *router {
	return &router{}
}

func (r *router) add(method, path string, handler fasthttp.RequestHandler) {
	r.routes = append(r.routes, route{
		method:   method,
		segments: splitPath(path),
		handler:  handler,
	})
}

func (r *router) GET(path string, handler fasthttp.RequestHandler) {
	r.add(fasthttp.MethodGet, path, handler)
}

func (r *router) POST(path string, handler fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPost, path, handler)
}

func (r *router) PUT(path string, handler fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPut, path, handler)
}

func (r *router) DELETE(path string, handler fasthttp.RequestHandler) {
	r.add(fasthttp.MethodDelete, path, handler)
}

func (r *router) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	segments := splitPath(string(ctx.Path()))

	pathMatched := false
	for _, rt := range r.routes {
		params, ok := matchSegments(rt.segments, segments)
		if !ok {
			continue
		}
		pathMatched = true
		if rt.method != method {
			continue
		}
		for name, value := range params {
			ctx.SetUserValue(name, value)
		}
		rt.handler(ctx)
		return
	}

	if pathMatched {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"Метод не поддерживается"}`)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"error":"Маршрут не найден"}`)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(pattern, actual []string) (map[string]string, bool) {
	if len(pattern) != len(actual) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = actual[i]
			continue
		}
		if seg != actual[i] {
			return nil, false
		}
	}
	return params, true
}
