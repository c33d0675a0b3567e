package httpmiddleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS_AnyOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 600})(okHandler())

	w := serve(h, func(r *http.Request) { r.Header.Set("Origin", "https://shop.example") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Values("Vary"))

	w = serve(h, func(r *http.Request) {
		r.Method = http.MethodOptions
		r.Header.Set("Origin", "https://shop.example")
		r.Header.Set("Access-Control-Request-Method", "POST")
		r.Header.Set("Access-Control-Request-Headers", "api_key, content-type")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "api_key, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:     []string{"https://Shop.Example"},
		AllowHeaders:     []string{"Content-Type", "api_key"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
	})(okHandler())

	w := serve(h, func(r *http.Request) { r.Header.Set("Origin", "https://shop.example") })
	assert.Equal(t, "https://Shop.Example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")

	w = serve(h, func(r *http.Request) { r.Header.Set("Origin", "https://evil.example") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(h, func(r *http.Request) {
		r.Method = http.MethodOptions
		r.Header.Set("Origin", "https://evil.example")
		r.Header.Set("Access-Control-Request-Method", "POST")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))

	w = serve(h, func(r *http.Request) {
		r.Method = http.MethodOptions
		r.Header.Set("Origin", "https://shop.example")
		r.Header.Set("Access-Control-Request-Method", "POST")
	})
	assert.Equal(t, "Content-Type, api_key", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_CredentialsDisableWildcard(t *testing.T) {
	h := CORS(CORSConfig{AllowCredentials: true})(okHandler())

	w := serve(h, func(r *http.Request) { r.Header.Set("Origin", "https://shop.example") })
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example"}})(okHandler())
	w := serve(h, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))
}
