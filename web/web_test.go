package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":       {Data: []byte("<html>app</html>")},
		"assets/app.js":    {Data: []byte("console.log(1)")},
		"assets/style.css": {Data: []byte("body{}")},
	}
}

func get(t *testing.T, h http.Handler, target string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHandler(t *testing.T) {
	h, err := Handler(testFS())
	require.NoError(t, err)

	tests := []struct {
		target string
		body   string
	}{
		{"/", "<html>app</html>"},
		{"/index.html", "<html>app</html>"},
		{"/assets/app.js", "console.log(1)"},
		{"/posts/42", "<html>app</html>"},
		{"/assets", "<html>app</html>"},
		{"/../../etc/passwd", "<html>app</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, body := get(t, h, tt.target)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestHandlerRequiresIndex(t *testing.T) {
	_, err := Handler(fstest.MapFS{"app.js": {Data: []byte("x")}})
	assert.Error(t, err)
}
