package nextware_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/tjfontaine/nextware/pkg/nextware"
)

func Example() {
	api := nextware.New(nextware.WithName("api")).
		Use(func(w nextware.Response, r *http.Request, next nextware.Next) {
			if r.URL.Path == "/fail" {
				next(fmt.Errorf("nothing here"))
				return
			}
			w.End("hello from api")
		})

	app := nextware.New().
		Mount(api).
		UseError(func(err any, w nextware.Response, r *http.Request, next nextware.Next) {
			w.WriteHeader(http.StatusTeapot)
			w.End(fmt.Sprint(err))
		})

	for _, path := range []string{"/", "/fail"} {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		body, _ := io.ReadAll(rec.Body)
		fmt.Println(rec.Code, string(body))
	}
	// Output:
	// 200 hello from api
	// 418 nothing here
}

func ExampleClassify() {
	for _, v := range []any{
		nextware.HandlerFunc(func(nextware.Response, *http.Request, nextware.Next) {}),
		nextware.ErrorHandlerFunc(func(any, nextware.Response, *http.Request, nextware.Next) {}),
		nextware.New(),
	} {
		kind, err := nextware.Classify(v)
		fmt.Println(kind, err != nil)
	}
	// Output:
	// handler false
	// error_handler false
	// app false
}
