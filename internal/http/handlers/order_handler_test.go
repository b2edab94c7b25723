// README: Router-level tests for order, quote and supplier handlers.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "ravito/internal/http"
	"ravito/internal/infra"
	"ravito/internal/modules/location"
	"ravito/internal/modules/matching"
	"ravito/internal/modules/order"
	"ravito/internal/modules/pricing"
	"ravito/internal/types"
)

// tokenTable maps bearer tokens to callers.
type tokenTable map[string]*infra.Token

func (t tokenTable) VerifyIDToken(_ context.Context, raw string) (*infra.Token, error) {
	if tok, ok := t[raw]; ok {
		return tok, nil
	}
	return nil, errors.New("unknown token")
}

var verifier = tokenTable{
	"client-1":   {UID: "c1", Claims: map[string]interface{}{"role": "client"}},
	"client-2":   {UID: "c2"},
	"supplier-A": {UID: "A", Claims: map[string]interface{}{"role": "supplier"}},
	"supplier-B": {UID: "B", Claims: map[string]interface{}{"role": "supplier"}},
	"admin":      {UID: "ops", Claims: map[string]interface{}{"role": "admin"}},
}

type fakeOrders struct {
	orders    map[types.ID]*order.Order
	createErr error
	created   []order.CreateCommand
	cancelled []order.CancelCommand
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[types.ID]*order.Order{
		"o-1": {ID: "o-1", ClientID: "c1", SupplierID: "A", ZoneID: "plateau", Status: order.StatusPending},
	}}
}

func (f *fakeOrders) Create(_ context.Context, cmd order.CreateCommand) (*order.Order, error) {
	f.created = append(f.created, cmd)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &order.Order{ID: "o-new", ClientID: cmd.ClientID, SupplierID: "A", ZoneID: cmd.ZoneID, Status: order.StatusPending,
		Totals: order.Totals{DeliveryCost: 880, PlatformMargin: 80}}, nil
}

func (f *fakeOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) Cancel(_ context.Context, cmd order.CancelCommand) (*order.Order, error) {
	f.cancelled = append(f.cancelled, cmd)
	o, ok := f.orders[cmd.OrderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	if cmd.Actor.Type == order.ActorClient && o.ClientID != cmd.Actor.ID {
		return nil, order.ErrForbidden
	}
	o.Status = order.StatusCancelled
	return o, nil
}

func (f *fakeOrders) transition(id, supplierID types.ID, from, to order.Status) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.SupplierID != supplierID {
		return nil, order.ErrForbidden
	}
	if o.Status != from {
		return nil, order.ErrInvalidState
	}
	o.Status = to
	return o, nil
}

func (f *fakeOrders) Accept(_ context.Context, id, supplierID types.ID) (*order.Order, error) {
	return f.transition(id, supplierID, order.StatusPending, order.StatusAccepted)
}

func (f *fakeOrders) StartDelivery(_ context.Context, id, supplierID types.ID) (*order.Order, error) {
	return f.transition(id, supplierID, order.StatusAccepted, order.StatusDelivering)
}

func (f *fakeOrders) Deliver(_ context.Context, id, supplierID types.ID) (*order.Order, error) {
	return f.transition(id, supplierID, order.StatusDelivering, order.StatusDelivered)
}

func (f *fakeOrders) ListPending(_ context.Context, supplierID types.ID) ([]order.Order, error) {
	out := []order.Order{}
	for _, o := range f.orders {
		if o.SupplierID == supplierID && o.Status == order.StatusPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakePreviewer struct {
	sel *matching.Selection
	err error
}

func (f fakePreviewer) Preview(context.Context, matching.SelectRequest) (*matching.Selection, error) {
	return f.sel, f.err
}

type fakeSupplierSvc struct {
	tokens map[types.ID]string
	depots map[types.ID]types.Point
}

func (f *fakeSupplierSvc) RegisterDevice(_ context.Context, supplierID types.ID, token string) error {
	f.tokens[supplierID] = token
	return nil
}

func (f *fakeSupplierSvc) UpdateDepot(_ context.Context, supplierID types.ID, p types.Point) error {
	if !location.ValidPoint(p) {
		return location.ErrInvalidPoint
	}
	f.depots[supplierID] = p
	return nil
}

type testEnv struct {
	router    *gin.Engine
	orders    *fakeOrders
	suppliers *fakeSupplierSvc
}

func newTestEnv(preview fakePreviewer) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		orders:    newFakeOrders(),
		suppliers: &fakeSupplierSvc{tokens: map[types.ID]string{}, depots: map[types.ID]types.Point{}},
	}
	env.router = httptransport.NewRouter(httptransport.RouterDeps{
		Verifier: verifier,
		Orders:   env.orders,
		Quotes:   preview,
		Devices:  env.suppliers,
		Depots:   env.suppliers,
	})
	return env
}

func doRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var checkoutBody = map[string]any{
	"zone_id":  "plateau",
	"delivery": map[string]float64{"lat": 5.36, "lng": -4.02},
	"items":    []map[string]any{{"product_id": "flag-65", "quantity": 2, "unit_price": 5000}},
}

func TestHealth(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	w := doRequest(env.router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreate_Unauthenticated(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	w := doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.orders.created)
}

func TestCreate_UsesCallerAsClient(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	w := doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "client-2")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, env.orders.created, 1)
	cmd := env.orders.created[0]
	assert.Equal(t, types.ID("c2"), cmd.ClientID)
	assert.Equal(t, types.ID("plateau"), cmd.ZoneID)
	assert.Equal(t, types.Point{Lat: 5.36, Lng: -4.02}, cmd.Delivery)
	require.Len(t, cmd.Items, 1)
	assert.Equal(t, 2, cmd.Items[0].Quantity)
}

func TestCreate_NoSupplierIs422(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	env.orders.createErr = matching.ErrNoSupplierAvailable
	w := doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "client-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"no supplier available for this zone/time"}`, w.Body.String())
}

func TestCreate_BusySuppliersIs503(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	env.orders.createErr = matching.ErrSuppliersBusy
	w := doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "client-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Body.String(), "no supplier available")
}

func TestCreate_BadRequests(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	w := doRequest(env.router, http.MethodPost, "/api/orders", map[string]any{"zone_id": "plateau"}, "client-1")
	assert.Equal(t, http.StatusBadRequest, w.Code, "delivery point is required")

	w = doRequest(env.router, http.MethodPost, "/api/orders", map[string]any{
		"zone_id": "pla teau", "delivery": map[string]float64{"lat": 5.36, "lng": -4.02},
	}, "client-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.orders.createErr = order.ErrBadRequest
	w = doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "client-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_SuppliersCannotCheckout(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	w := doRequest(env.router, http.MethodPost, "/api/orders", checkoutBody, "supplier-A")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGet_Visibility(t *testing.T) {
	env := newTestEnv(fakePreviewer{})
	cases := map[string]int{
		"client-1":   http.StatusOK,
		"client-2":   http.StatusForbidden,
		"supplier-A": http.StatusOK,
		"supplier-B": http.StatusForbidden,
		"admin":      http.StatusOK,
	}
	for token, want := range cases {
		w := doRequest(env.router, http.MethodGet, "/api/orders/o-1", nil, token)
		assert.Equal(t, want, w.Code, token)
	}
	w := doRequest(env.router, http.MethodGet, "/api/orders/o-404", nil, "admin")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSupplierLifecycle(t *testing.T) {
	env := newTestEnv(fakePreviewer{})

	w := doRequest(env.router, http.MethodPost, "/api/orders/o-1/accept", nil, "client-1")
	assert.Equal(t, http.StatusForbidden, w.Code, "clients cannot accept")

	w = doRequest(env.router, http.MethodPost, "/api/orders/o-1/accept", nil, "supplier-B")
	assert.Equal(t, http.StatusForbidden, w.Code, "only the assigned supplier")

	w = doRequest(env.router, http.MethodPost, "/api/orders/o-1/deliver", nil, "supplier-A")
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, step := range []string{"accept", "start", "deliver"} {
		w = doRequest(env.router, http.MethodPost, "/api/orders/o-1/"+step, nil, "supplier-A")
		require.Equal(t, http.StatusOK, w.Code, step)
	}
	assert.Equal(t, order.StatusDelivered, env.orders.orders["o-1"].Status)
}

func TestCancel_ActorFromRole(t *testing.T) {
	env := newTestEnv(fakePreviewer{})

	w := doRequest(env.router, http.MethodPost, "/api/orders/o-1/cancel", map[string]string{"reason": "late"}, "client-2")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(env.router, http.MethodPost, "/api/orders/o-1/cancel", nil, "supplier-A")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(env.router, http.MethodPost, "/api/orders/o-1/cancel", map[string]string{"reason": "late"}, "admin")
	require.Equal(t, http.StatusOK, w.Code)
	last := env.orders.cancelled[len(env.orders.cancelled)-1]
	assert.Equal(t, order.ActorAdmin, last.Actor.Type)
	assert.Equal(t, "late", last.Reason)
}

func TestListPending(t *testing.T) {
	env := newTestEnv(fakePreviewer{})

	w := doRequest(env.router, http.MethodGet, "/api/suppliers/me/orders/pending", nil, "supplier-A")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Orders []order.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	assert.Equal(t, types.ID("o-1"), body.Orders[0].ID)

	w = doRequest(env.router, http.MethodGet, "/api/suppliers/me/orders/pending", nil, "supplier-B")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orders":[]}`, w.Body.String())

	w = doRequest(env.router, http.MethodGet, "/api/suppliers/me/orders/pending", nil, "client-1")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(fakePreviewer{sel: &matching.Selection{
		SupplierID: "A",
		Quote:      pricing.Quote{DistanceKm: 1.57, Base: 800, Margin: 80, Total: 880, Currency: types.CurrencyXOF},
	}})
	body := map[string]any{"zone_id": "plateau", "delivery": map[string]float64{"lat": 5.36, "lng": -4.02}}

	w := doRequest(env.router, http.MethodPost, "/api/delivery/quote", body, "client-1")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(880), got["delivery_cost"])
	assert.Equal(t, float64(80), got["platform_margin"])
	assert.Equal(t, "XOF", got["currency"])

	none := newTestEnv(fakePreviewer{err: matching.ErrNoSupplierAvailable})
	w = doRequest(none.router, http.MethodPost, "/api/delivery/quote", body, "client-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSupplierSelfService(t *testing.T) {
	env := newTestEnv(fakePreviewer{})

	w := doRequest(env.router, http.MethodPut, "/api/suppliers/me/device", map[string]string{"token": "fcm-1"}, "supplier-A")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "fcm-1", env.suppliers.tokens["A"])

	w = doRequest(env.router, http.MethodPut, "/api/suppliers/me/device", map[string]string{}, "supplier-A")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(env.router, http.MethodPut, "/api/suppliers/me/depot", map[string]float64{"lat": 5.37, "lng": -4.03}, "supplier-A")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.Point{Lat: 5.37, Lng: -4.03}, env.suppliers.depots["A"])

	w = doRequest(env.router, http.MethodPut, "/api/suppliers/me/depot", map[string]float64{"lat": 120, "lng": 0}, "supplier-A")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(env.router, http.MethodPut, "/api/suppliers/me/depot", map[string]float64{"lat": 5.37, "lng": -4.03}, "client-1")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
