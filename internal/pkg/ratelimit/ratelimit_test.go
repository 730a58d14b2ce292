package ratelimit

import (
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(rule Rule) *fiber.App {
	app := fiber.New()
	app.Post("/api/contact", New(rule, nil), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func post(t *testing.T, app *fiber.App, ip string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/contact", nil)
	req.Header.Set("X-Forwarded-For", ip)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, map[string]string{
		fiber.HeaderRetryAfter: resp.Header.Get(fiber.HeaderRetryAfter),
		HeaderLimit:            resp.Header.Get(HeaderLimit),
		HeaderRemaining:        resp.Header.Get(HeaderRemaining),
		HeaderReset:            resp.Header.Get(HeaderReset),
	}
}

func TestContactSixthRequestRejected(t *testing.T) {
	app := newApp(Contact)

	for i := 1; i <= 5; i++ {
		status, headers := post(t, app, "203.0.113.9")
		require.Equal(t, fiber.StatusOK, status, "request %d", i)
		assert.Equal(t, "5", headers[HeaderLimit])
		assert.Equal(t, strconv.Itoa(5-i), headers[HeaderRemaining])
	}

	status, headers := post(t, app, "203.0.113.9")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.NotEmpty(t, headers[fiber.HeaderRetryAfter])
	assert.Equal(t, "5", headers[HeaderLimit])
	assert.Equal(t, "0", headers[HeaderRemaining])
	assert.Equal(t, headers[fiber.HeaderRetryAfter], headers[HeaderReset])
}

func TestLimitsArePerClient(t *testing.T) {
	app := newApp(Offerte)
	for i := 0; i < 3; i++ {
		status, _ := post(t, app, "198.51.100.1")
		require.Equal(t, fiber.StatusOK, status)
	}
	status, _ := post(t, app, "198.51.100.1")
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	status, _ = post(t, app, "198.51.100.2")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRejectionBody(t *testing.T) {
	app := newApp(Rule{Name: "tiny", Max: 1, Window: time.Minute})
	post(t, app, "192.0.2.1")

	req := httptest.NewRequest(fiber.MethodPost, "/api/contact", nil)
	req.Header.Set("CF-Connecting-IP", "192.0.2.1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, limitedMessage, body.Error)
}

func TestClientIPPrecedence(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "1.1.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "2.2.2.2, 10.0.0.1"}, "2.2.2.2"},
		{"remote addr", nil, "0.0.0.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tc.want, string(buf[:n]))
		})
	}
}
