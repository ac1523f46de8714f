package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/shelf-api/internal/api"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/platform/memory"
	"github.com/phrazzld/shelf-api/internal/query"
	"github.com/phrazzld/shelf-api/internal/resolve"
	"github.com/phrazzld/shelf-api/internal/seed"
	"github.com/phrazzld/shelf-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newHandler(t *testing.T) *api.QueryHandler {
	t.Helper()

	s := memory.NewStore(logger.Discard())
	require.NoError(t, seed.Apply(context.Background(), s, seed.Default(), logger.Discard()))

	svc, err := service.NewCatalogueService(s, nil, logger.Discard())
	require.NoError(t, err)

	ex := query.NewExecutor(s, resolve.New(s, logger.Discard()), svc, nil, query.Options{
		Limits:      query.Limits{MaxDepth: 10, MaxFields: 200},
		Parallelism: 4,
		Timeout:     5 * time.Second,
	}, logger.Discard())
	return api.NewQueryHandler(ex, logger.Discard())
}

func post(h *api.QueryHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Post(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	return w
}

func get(h *api.QueryHandler, params url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/query?"+params.Encode(), nil))
	return w
}

func TestQueryHandler_Post(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := post(h, `{"query":"{ book(id: 1) { name author { name } } }"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"book":{
		"name":"Harry Potter and the Chamber of Secrets",
		"author":{"name":"J. K. Rowling"}}}}`, w.Body.String())
}

func TestQueryHandler_PostMutationThenRead(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := post(h, `{
		"query": "mutation Add($name: String!) { addAuthor(name: $name) { id name books { id } } }",
		"variables": {"name": "Brandon Sanderson"},
		"operationName": "Add"
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), gjson.Get(w.Body.String(), "data.addAuthor.id").Int())
	assert.Equal(t, "Brandon Sanderson", gjson.Get(w.Body.String(), "data.addAuthor.name").String())
	assert.Equal(t, "[]", gjson.Get(w.Body.String(), "data.addAuthor.books").Raw)

	w = post(h, `{"query":"mutation { addBook(name: \"Mistborn\", authorId: 4) { id author { name } } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), gjson.Get(w.Body.String(), "data.addBook.id").Int())
	assert.Equal(t, "Brandon Sanderson", gjson.Get(w.Body.String(), "data.addBook.author.name").String())

	w = get(h, url.Values{
		"query":     {"query($id: Int) { author(id: $id) { books { name } } }"},
		"variables": {`{"id": 4}`},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"author":{"books":[{"name":"Mistborn"}]}}}`, w.Body.String())
}

func TestQueryHandler_FieldErrorIsOK(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := post(h, `{"query":"mutation { addBook(name: \"Orphan\", authorId: 99) { id } }"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, gjson.Null, gjson.Get(body, "data.addBook").Type)
	assert.Equal(t, "VALIDATION_FAILED", gjson.Get(body, "errors.0.extensions.code").String())
	assert.Equal(t, `["addBook"]`, gjson.Get(body, "errors.0.path").Raw)

	w = post(h, `{"query":"{ books { id } }"}`)
	assert.Equal(t, int64(8), gjson.Get(w.Body.String(), "data.books.#").Int())
}

func TestQueryHandler_Get(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := get(h, url.Values{"query": {"{ authors { name } }"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		[]string{"J. K. Rowling", "J. R. R. Tolkien", "Brent Weeks"},
		stringSlice(gjson.Get(w.Body.String(), "data.authors.#.name")))
}

func TestQueryHandler_GetRejectsMutation(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := get(h, url.Values{"query": {`mutation { addAuthor(name: "Nope") { id } }`}})

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	assert.Equal(t, "VALIDATION_FAILED", gjson.Get(w.Body.String(), "errors.0.extensions.code").String())

	w = get(h, url.Values{"query": {"{ authors { id } }"}})
	assert.Equal(t, int64(3), gjson.Get(w.Body.String(), "data.authors.#").Int(), "rejected mutation must not write")
}

func TestQueryHandler_RequestErrors(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	tests := []struct {
		name    string
		do      func() *httptest.ResponseRecorder
		status  int
		message string
	}{
		{
			name:    "missing query",
			do:      func() *httptest.ResponseRecorder { return post(h, `{"variables":{}}`) },
			status:  http.StatusBadRequest,
			message: "query is required",
		},
		{
			name:    "blank query",
			do:      func() *httptest.ResponseRecorder { return post(h, `{"query":"   "}`) },
			status:  http.StatusBadRequest,
			message: "query is required",
		},
		{
			name:   "syntax error",
			do:     func() *httptest.ResponseRecorder { return post(h, `{"query":"{ books { id "}`) },
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			do:     func() *httptest.ResponseRecorder { return post(h, `{"query":"{ publishers { id } }"}`) },
			status: http.StatusBadRequest,
		},
		{
			name:   "variables not an object",
			do:     func() *httptest.ResponseRecorder { return post(h, `{"query":"{ books { id } }","variables":[1]}`) },
			status: http.StatusBadRequest,
		},
		{
			name: "get variables not json",
			do: func() *httptest.ResponseRecorder {
				return get(h, url.Values{"query": {"{ books { id } }"}, "variables": {"{id:"}})
			},
			status:  http.StatusBadRequest,
			message: "variables must be a JSON object",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := tc.do()
			require.Equal(t, tc.status, w.Code)

			body := w.Body.String()
			if gjson.Get(body, "error").Exists() {
				// Bodies that are not JSON objects of the right shape fail decoding.
				assert.Equal(t, "Invalid request format", gjson.Get(body, "error").String())
				return
			}
			data := gjson.Get(body, "data")
			assert.True(t, data.Exists())
			assert.Equal(t, gjson.Null, data.Type)
			assert.Equal(t, int64(1), gjson.Get(body, "errors.#").Int())
			assert.Equal(t, "VALIDATION_FAILED", gjson.Get(body, "errors.0.extensions.code").String())
			if tc.message != "" {
				assert.Equal(t, tc.message, gjson.Get(body, "errors.0.message").String())
			}
		})
	}
}

func TestQueryHandler_MalformedJSON(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	w := post(h, `{"query":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format", gjson.Get(w.Body.String(), "error").String())
	assert.False(t, gjson.Get(w.Body.String(), "data").Exists())
}

type executorFunc func(ctx context.Context, req query.Request) (*query.Response, error)

func (f executorFunc) Execute(ctx context.Context, req query.Request) (*query.Response, error) {
	return f(ctx, req)
}

func TestQueryHandler_Deadline(t *testing.T) {
	t.Parallel()
	h := api.NewQueryHandler(executorFunc(func(context.Context, query.Request) (*query.Response, error) {
		return &query.Response{Errors: []*query.Error{{
			Message:    "request deadline exceeded",
			Extensions: query.ErrorExtensions{Code: query.CodeDeadlineExceeded},
		}}}, query.ErrDeadlineExceeded
	}), logger.Discard())

	w := post(h, `{"query":"{ books { id } }"}`)

	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"data":null,"errors":[{
		"message":"request deadline exceeded",
		"extensions":{"code":"DEADLINE_EXCEEDED"}}]}`, w.Body.String())
}

func TestQueryHandler_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	var got query.Request
	h := api.NewQueryHandler(executorFunc(func(_ context.Context, req query.Request) (*query.Response, error) {
		got = req
		return &query.Response{}, nil
	}), logger.Discard())

	post(h, `{"query":"query A { books { id } }","operationName":"A","variables":{"n":1}}`)
	assert.Equal(t, "A", got.OperationName)
	assert.False(t, got.ReadOnly)
	assert.Contains(t, got.Variables, "n")

	get(h, url.Values{"query": {"{ books { id } }"}})
	assert.True(t, got.ReadOnly)
}

func TestNewQueryHandler_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { api.NewQueryHandler(nil, logger.Discard()) })
	assert.Panics(t, func() {
		api.NewQueryHandler(executorFunc(func(context.Context, query.Request) (*query.Response, error) {
			return nil, nil
		}), nil)
	})
}

func stringSlice(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
