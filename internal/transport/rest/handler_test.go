package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/shopfront/internal/cart"
	"github.com/abgdnv/shopfront/internal/catalog"
	"github.com/abgdnv/shopfront/internal/checkout"
	"github.com/abgdnv/shopfront/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCheckoutService is a mock implementation of the checkout.SessionService interface
type mockCheckoutService struct {
	url   string
	error error
	items []checkout.RequestedItem
	calls int
}

func (m *mockCheckoutService) CreateSession(_ context.Context, items []checkout.RequestedItem) (string, error) {
	m.calls++
	m.items = items
	if m.error != nil {
		return "", m.error
	}
	return m.url, nil
}

// mockWebhookService is a mock implementation of the webhook.EventHandler interface
type mockWebhookService struct {
	error   error
	payload []byte
	sig     string
}

func (m *mockWebhookService) Handle(_ context.Context, payload []byte, sigHeader string) error {
	m.payload = payload
	m.sig = sigHeader
	return m.error
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Product{
		{ID: "tee", Name: "Tee", Price: 2500, Image: "/tee.png", Color: "black"},
		{ID: "mug", Name: "Mug", Price: 1500, Image: "/mug.png", Color: "white"},
	})
	require.NoError(t, err)
	return c
}

func newTestHandler(t *testing.T, checkoutSvc checkout.SessionService, webhooks webhook.EventHandler, exposeErrors bool) *Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	carts := cart.NewManager(t.TempDir(), logger)
	return NewHandler(testCatalog(t), carts, checkoutSvc, webhooks, exposeErrors, logger)
}

func Test_Handler_CreateCheckoutSession(t *testing.T) {
	testCases := []struct {
		name          string
		body          string
		mockService   *mockCheckoutService
		exposeErrors  bool
		expectedCode  int
		expectedBody  string
		expectedCalls int
	}{
		{
			name:          "Success - session created",
			body:          `{"items":[{"id":"tee","qty":2}]}`,
			mockService:   &mockCheckoutService{url: "https://checkout.example/cs_1"},
			expectedCode:  http.StatusOK,
			expectedBody:  toJSON(t, map[string]string{"url": "https://checkout.example/cs_1"}),
			expectedCalls: 1,
		},
		{
			name:          "Error - empty cart",
			body:          `{"items":[]}`,
			mockService:   &mockCheckoutService{error: checkout.ErrEmptyCart},
			expectedCode:  http.StatusBadRequest,
			expectedBody:  toJSON(t, ErrorResponse{Error: "Cart is empty"}),
			expectedCalls: 1,
		},
		{
			name:          "Error - unknown product named in response",
			body:          `{"items":[{"id":"ghost"}]}`,
			mockService:   &mockCheckoutService{error: &checkout.UnknownProductError{ID: "ghost"}},
			expectedCode:  http.StatusBadRequest,
			expectedBody:  toJSON(t, ErrorResponse{Error: "Unknown product: ghost"}),
			expectedCalls: 1,
		},
		{
			name:          "Error - not configured",
			body:          `{"items":[{"id":"tee"}]}`,
			mockService:   &mockCheckoutService{error: checkout.ErrNotConfigured},
			expectedCode:  http.StatusInternalServerError,
			expectedBody:  toJSON(t, ErrorResponse{Error: "Stripe is not configured"}),
			expectedCalls: 1,
		},
		{
			name:          "Error - gateway failure hidden in production",
			body:          `{"items":[{"id":"tee"}]}`,
			mockService:   &mockCheckoutService{error: errors.New("rate limited")},
			expectedCode:  http.StatusInternalServerError,
			expectedBody:  toJSON(t, ErrorResponse{Error: "Failed to create checkout session"}),
			expectedCalls: 1,
		},
		{
			name:          "Error - gateway failure detail exposed outside production",
			body:          `{"items":[{"id":"tee"}]}`,
			mockService:   &mockCheckoutService{error: errors.New("rate limited")},
			exposeErrors:  true,
			expectedCode:  http.StatusInternalServerError,
			expectedBody:  toJSON(t, ErrorResponse{Error: "Failed to create checkout session: rate limited"}),
			expectedCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := newTestHandler(t, tc.mockService, &mockWebhookService{}, tc.exposeErrors)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			api.CreateCheckoutSession(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "response body should match")
			assert.Equal(t, tc.expectedCalls, tc.mockService.calls)
		})
	}
}

func Test_Handler_CreateCheckoutSession_MalformedBodyIsEmptyCart(t *testing.T) {
	mockService := &mockCheckoutService{error: checkout.ErrEmptyCart}
	api := newTestHandler(t, mockService, &mockWebhookService{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()

	api.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, toJSON(t, ErrorResponse{Error: "Cart is empty"}), rr.Body.String())
	assert.Empty(t, mockService.items, "malformed body must reach the service as an empty item list")
}

func Test_Handler_CreateCheckoutSession_IgnoresClientPrice(t *testing.T) {
	mockService := &mockCheckoutService{url: "https://checkout.example/cs_1"}
	api := newTestHandler(t, mockService, &mockWebhookService{}, false)

	// a client-attached price field is silently dropped by decoding
	body := `{"items":[{"id":"tee","qty":1,"price":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rr := httptest.NewRecorder()

	api.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, mockService.items, 1)
	assert.Equal(t, checkout.RequestedItem{ID: "tee", Qty: 1}, mockService.items[0])
}

func Test_Handler_CreateCheckoutSession_LenientQuantities(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		expectedQty checkout.Quantity
	}{
		{name: "string quantity parses", body: `{"items":[{"id":"tee","qty":"3"}]}`, expectedQty: 3},
		{name: "fractional quantity truncates", body: `{"items":[{"id":"tee","qty":2.5}]}`, expectedQty: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockCheckoutService{url: "https://checkout.example/cs_1"}
			api := newTestHandler(t, mockService, &mockWebhookService{}, false)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			api.CreateCheckoutSession(rr, req)

			// a loose quantity must not collapse the whole body into an empty cart
			assert.Equal(t, http.StatusOK, rr.Code)
			require.Len(t, mockService.items, 1)
			assert.Equal(t, checkout.RequestedItem{ID: "tee", Qty: tc.expectedQty}, mockService.items[0])
		})
	}
}

func Test_Handler_StripeWebhook(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  *mockWebhookService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - verified delivery acknowledged with empty body",
			mockService:  &mockWebhookService{},
			expectedCode: http.StatusOK,
			expectedBody: "",
		},
		{
			name:         "Error - invalid signature",
			mockService:  &mockWebhookService{error: webhook.ErrInvalidSignature},
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid signature"}),
		},
		{
			name:         "Error - not configured",
			mockService:  &mockWebhookService{error: webhook.ErrNotConfigured},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: toJSON(t, ErrorResponse{Error: "Webhook not configured"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := newTestHandler(t, &mockCheckoutService{}, tc.mockService, false)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"type":"x"}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			rr := httptest.NewRecorder()

			// when
			api.StripeWebhook(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			if tc.expectedBody == "" {
				assert.Empty(t, rr.Body.String())
			} else {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
			assert.Equal(t, `{"type":"x"}`, string(tc.mockService.payload))
			assert.Equal(t, "t=1,v1=abc", tc.mockService.sig)
		})
	}
}

func Test_Handler_ListProducts(t *testing.T) {
	api := newTestHandler(t, &mockCheckoutService{}, &mockWebhookService{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()

	api.ListProducts(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var products []catalog.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "tee", products[0].ID)
}

// newCartMux wires the handler into a chi router so cookie handling and path
// parameters behave as in production.
func newCartMux(t *testing.T) *chi.Mux {
	t.Helper()
	api := newTestHandler(t, &mockCheckoutService{}, &mockWebhookService{}, false)
	mux := chi.NewRouter()
	api.RegisterRoutes(mux)
	return mux
}

// doCart performs a request, carrying the session cookie between calls.
func doCart(t *testing.T, mux *chi.Mux, cookies []*http.Cookie, method, path, body string) (*httptest.ResponseRecorder, []*http.Cookie) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if set := rr.Result().Cookies(); len(set) > 0 {
		cookies = set
	}
	return rr, cookies
}

func decodeCart(t *testing.T, rr *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func Test_Handler_CartFlow(t *testing.T) {
	mux := newCartMux(t)
	var cookies []*http.Cookie

	// empty cart on first contact, session cookie issued
	rr, cookies := doCart(t, mux, cookies, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, cookies)
	assert.Empty(t, decodeCart(t, rr).Items)

	// add twice: one line, qty 2
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items", `{"id":"tee"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items", `{"id":"tee"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeCart(t, rr)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].Qty)
	assert.Equal(t, int64(5000), resp.Total)

	// increment, then decrement twice: floor at 1 applies after three steps
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items/tee/increment", "")
	assert.Equal(t, int64(3), decodeCart(t, rr).Items[0].Qty)
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items/tee/decrement", "")
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items/tee/decrement", "")
	assert.Equal(t, int64(1), decodeCart(t, rr).Items[0].Qty)

	// remove and clear
	rr, cookies = doCart(t, mux, cookies, http.MethodPost, "/api/v1/cart/items", `{"id":"mug"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr, cookies = doCart(t, mux, cookies, http.MethodDelete, "/api/v1/cart/items/tee", "")
	resp = decodeCart(t, rr)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "mug", resp.Items[0].ID)

	rr, _ = doCart(t, mux, cookies, http.MethodDelete, "/api/v1/cart", "")
	resp = decodeCart(t, rr)
	assert.Empty(t, resp.Items)
	assert.Equal(t, int64(0), resp.Total)
}

func Test_Handler_AddCartItem_Validation(t *testing.T) {
	mux := newCartMux(t)

	testCases := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{name: "Error - unknown product", body: `{"id":"ghost"}`, expectedCode: http.StatusNotFound},
		{name: "Error - missing id", body: `{}`, expectedCode: http.StatusBadRequest},
		{name: "Error - invalid body", body: `{`, expectedCode: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr, _ := doCart(t, mux, nil, http.MethodPost, "/api/v1/cart/items", tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func Test_Handler_HealthCheck(t *testing.T) {
	api := newTestHandler(t, &mockCheckoutService{}, &mockWebhookService{}, false)
	rr := httptest.NewRecorder()
	api.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
