package orders

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawcircle/pawcircle-backend/api/middleware"
	"github.com/pawcircle/pawcircle-backend/internal/checkout"
	internalorders "github.com/pawcircle/pawcircle-backend/internal/orders"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

type stubOrders struct {
	lastErr    error
	gotOrderID string
	gotParams  pagination.Params
}

func (s *stubOrders) LastOrder(context.Context, uuid.UUID) (*checkout.Snapshot, error) {
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	return &checkout.Snapshot{OrderID: "ORD-LAST"}, nil
}

func (s *stubOrders) Get(_ context.Context, _ uuid.UUID, orderID string) (*checkout.Snapshot, error) {
	s.gotOrderID = orderID
	return &checkout.Snapshot{OrderID: orderID}, nil
}

func (s *stubOrders) List(_ context.Context, _ uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.gotParams = params
	return &internalorders.OrderList{Orders: []internalorders.OrderSummary{}}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrders{}
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=3&cursor=c1", nil)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotParams.Limit != 3 || svc.gotParams.Cursor != "c1" {
		t.Fatalf("expected limit 3 cursor c1, got %+v", svc.gotParams)
	}
}

func TestLastWithoutOrderIsNotFound(t *testing.T) {
	svc := &stubOrders{lastErr: pkgerrors.New(pkgerrors.CodeNotFound, "no order placed yet")}
	resp := httptest.NewRecorder()
	Last(svc, testLogger())(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/last", nil)))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDetailSanitizesOrderID(t *testing.T) {
	svc := &stubOrders{}
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", "  ORD-01HZX  ")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	Detail(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.gotOrderID != "ORD-01HZX" {
		t.Fatalf("expected trimmed order id, got %q", svc.gotOrderID)
	}
	if !strings.Contains(resp.Body.String(), "ORD-01HZX") {
		t.Fatalf("order id missing from body: %s", resp.Body.String())
	}
}
