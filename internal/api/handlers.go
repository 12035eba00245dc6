package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/example/ec-storefront/internal/catalog"
	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/session"
	"github.com/example/ec-storefront/internal/storefront"
	"github.com/gorilla/mux"
)

// Site holds the values every storefront response carries.
type Site struct {
	Name          string
	RootDomain    string
	SecureCookies bool
}

// SiteInfo is the shared header of storefront responses.
type SiteInfo struct {
	SiteName      string `json:"site_name"`
	RootDomain    string `json:"root_domain"`
	CartItemCount int    `json:"cart_item_count"`
}

// Handlers serves the public storefront. Every handler resolves the
// visitor's session first.
type Handlers struct {
	resolver *session.Resolver
	catalog  *catalog.Service
	carts    *storefront.CartService
	checkout *checkout.Coordinator
	site     Site
}

func NewHandlers(
	resolver *session.Resolver,
	catalog *catalog.Service,
	carts *storefront.CartService,
	coordinator *checkout.Coordinator,
	site Site,
) *Handlers {
	return &Handlers{
		resolver: resolver,
		catalog:  catalog,
		carts:    carts,
		checkout: coordinator,
		site:     site,
	}
}

type ProductListResponse struct {
	*catalog.Page
	SiteInfo
}

type ProductResponse struct {
	Product *product.View `json:"product"`
	SiteInfo
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	SiteInfo
}

type CartResponse struct {
	*storefront.CartView
	SiteInfo
}

type CartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type CheckoutRequest struct {
	PaymentToken string `json:"payment_token"`
}

type CheckoutResponse struct {
	*checkout.Result
	Error string `json:"error,omitempty"`
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	result, err := h.catalog.Browse(r.Context(), catalog.BrowseParams{
		Page:     page,
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ProductListResponse{Page: result, SiteInfo: h.siteInfo(sc)})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductResponse{Product: view, SiteInfo: h.siteInfo(sc)})
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{
		Categories: h.catalog.Categories(),
		SiteInfo:   h.siteInfo(sc),
	})
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	h.respondCart(w, r, sc, http.StatusOK)
}

// AddToCart applies quantity as a delta to the product's cart line.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	if _, err := h.carts.Update(r.Context(), sc, req.ProductID, req.Quantity); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, sc, http.StatusOK)
}

// RemoveOneFromCart decrements the product's cart line by one.
func (h *Handlers) RemoveOneFromCart(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, -1)
}

// DeleteFromCart drops the product's cart line.
func (h *Handlers) DeleteFromCart(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, 0)
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	result, err := h.checkout.Checkout(r.Context(), sc, req.PaymentToken)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			respondError(w, r, err)
			return
		}
		respondJSON(w, status, CheckoutResponse{Result: result, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponse{Result: result})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) applyDelta(w http.ResponseWriter, r *http.Request, delta int) {
	sc, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if _, err := h.carts.Update(r.Context(), sc, id, delta); err != nil {
		respondError(w, r, err)
		return
	}
	h.respondCart(w, r, sc, http.StatusOK)
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, sc *session.Context, status int) {
	view, err := h.carts.View(r.Context(), sc)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, status, CartResponse{CartView: view, SiteInfo: h.siteInfo(sc)})
}

// resolveSession loads or creates the visitor's session and sets the
// session cookie when a new one was created. It writes the error response
// itself and reports false when the request cannot continue.
func (h *Handlers) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Context, bool) {
	req := session.Request{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		req.Token = cookie.Value
	}

	sc, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	if sc.WasCreated {
		setSessionCookie(w, sc, h.site.SecureCookies)
	}
	return sc, true
}

func (h *Handlers) siteInfo(sc *session.Context) SiteInfo {
	return SiteInfo{
		SiteName:      h.site.Name,
		RootDomain:    h.site.RootDomain,
		CartItemCount: sc.ItemCount(),
	}
}

func setSessionCookie(w http.ResponseWriter, sc *session.Context, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sc.SessionID.String(),
		Path:     "/",
		MaxAge:   int(session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func pathID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}
