// Package httpapi exposes the registry services over a JSON REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/xrf-labs/asset-registry/internal/app"
	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/services/contracts"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
	"github.com/xrf-labs/asset-registry/pkg/logger"
)

// FingerprintHeader carries the caller's owner fingerprint on mutating
// requests.
const FingerprintHeader = "X-XRF-User-Fingerprint"

const defaultPageLimit = 50

type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the REST router for the application services.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	return newHandler(application, log, nil)
}

// NewHandlerWithAudit additionally persists the mutation audit trail as
// JSONL at path.
func NewHandlerWithAudit(application *app.Application, log *logger.Logger, path string) (http.Handler, error) {
	sink, err := newFileAuditSink(path)
	if err != nil {
		return nil, err
	}
	return newHandler(application, log, sink), nil
}

func newHandler(application *app.Application, log *logger.Logger, sink auditSink) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, audit: newAuditLog(0, sink), log: log}

	r := mux.NewRouter()
	r.Use(h.auditMiddleware)

	// Literal paths before the {id} templates.
	r.HandleFunc("/assets/search", h.searchAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets/stream", h.streamAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets", h.createAsset).Methods(http.MethodPost)
	r.HandleFunc("/assets", h.listAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id}", h.getAsset).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id}", h.updateAsset).Methods(http.MethodPatch)
	r.HandleFunc("/assets/{id}", h.deleteAsset).Methods(http.MethodDelete)
	r.HandleFunc("/assets/{id}/transfer", h.transferAsset).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id}/certificates", h.assetCertificates).Methods(http.MethodGet)
	r.HandleFunc("/certificates/{id}", h.getCertificate).Methods(http.MethodGet)
	r.HandleFunc("/contracts", h.createContract).Methods(http.MethodPost)
	r.HandleFunc("/contracts/{asset_id}", h.findContract).Methods(http.MethodGet)
	r.HandleFunc("/contracts/{id}", h.updateContract).Methods(http.MethodPatch)
	r.HandleFunc("/audit", h.auditEntries).Methods(http.MethodGet)
	return r
}

func (h *handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		OrgID       string `json:"org_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}

	created, err := h.app.Assets.Create(r.Context(), payload.Name, payload.Symbol,
		payload.Description, payload.OrgID, r.Header.Get(FingerprintHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.app.Assets.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		asset.Update
		OrgID           string `json:"org_id"`
		ExpectedVersion int64  `json:"expected_version,omitempty"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}

	updated, err := h.app.Assets.Update(r.Context(), payload.OrgID, mux.Vars(r)["id"],
		payload.Update, r.Header.Get(FingerprintHeader), payload.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrgID string `json:"org_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}
	orgID := payload.OrgID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}

	if err := h.app.Assets.Delete(r.Context(), orgID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *handler) transferAsset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrgID         string `json:"org_id"`
		NewOwnerFP    string `json:"new_owner_fp"`
		NewOwnerOrgID string `json:"new_owner_org_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}

	certID, err := h.app.Transfers.Transfer(r.Context(), payload.OrgID,
		mux.Vars(r)["id"], payload.NewOwnerFP, payload.NewOwnerOrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"certificate_id": certID})
}

func (h *handler) assetCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.app.Transfers.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (h *handler) getCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.app.Transfers.Certificate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := pageParams(q.Get("offset"), q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}

	var page storage.AssetPage
	if owner := q.Get("owner_fp"); owner != "" {
		listableOnly := strings.EqualFold(q.Get("listable_only"), "true")
		page, err = h.app.Assets.ByOwner(r.Context(), owner, listableOnly, offset, limit, q.Get("sort_order"))
	} else {
		page, err = h.app.Assets.Paginated(r.Context(), limit, offset, q.Get("sort_order"), q.Get("symbol"))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) searchAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := pageParams(q.Get("offset"), q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.app.Assets.NameLike(r.Context(), q.Get("name"), offset, limit, q.Get("sort_order"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// streamAssets emits the windowed listing as NDJSON: one JSON-encoded page
// chunk per line, flushed as produced. The window and total match the bulk
// listing for the same parameters.
func (h *handler) streamAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := pageParams(q.Get("offset"), q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	chunkSize := 0
	if raw := q.Get("chunk_size"); raw != "" {
		if chunkSize, err = strconv.Atoi(raw); err != nil {
			writeError(w, fault.New(fault.InvalidArgument, "chunk_size must be an integer"))
			return
		}
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	wrote := false
	err = h.app.Assets.Streamed(r.Context(), limit, offset, q.Get("sort_order"), q.Get("symbol"),
		chunkSize, func(page storage.AssetPage) error {
			if encErr := enc.Encode(page); encErr != nil {
				return fault.Wrap(fault.Unavailable, encErr, "write chunk")
			}
			wrote = true
			if flusher != nil {
				flusher.Flush()
			}
			return nil
		})
	if err != nil && !wrote {
		writeError(w, err)
		return
	}
	if err != nil {
		// Headers are gone; the truncated stream is the only signal left.
		h.log.Errorf("asset stream aborted: %v", err)
	}
}

func (h *handler) createContract(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AssetID            string   `json:"asset_id"`
		Summary            string   `json:"summary"`
		Details            string   `json:"details"`
		MinPrice           float32  `json:"min_price"`
		AnonymousBuyers    bool     `json:"anonymous_buyers"`
		RoyaltyReceiver    *string  `json:"royalty_receiver,omitempty"`
		RoyaltyPercentage  *float32 `json:"royalty_percentage,omitempty"`
		AcceptedCurrencies []string `json:"accepted_currencies"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}

	created, err := h.app.Contracts.Create(r.Context(), contracts.CreateRequest{
		AssetID:            payload.AssetID,
		Summary:            payload.Summary,
		Details:            payload.Details,
		MinPrice:           payload.MinPrice,
		AnonymousBuyers:    payload.AnonymousBuyers,
		UserFingerprint:    r.Header.Get(FingerprintHeader),
		RoyaltyReceiver:    payload.RoyaltyReceiver,
		RoyaltyPercentage:  payload.RoyaltyPercentage,
		AcceptedCurrencies: payload.AcceptedCurrencies,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) findContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Contracts.Find(r.Context(), mux.Vars(r)["asset_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateContract(w http.ResponseWriter, r *http.Request) {
	var payload contract.Update
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, fault.Wrap(fault.InvalidArgument, err, "decode request"))
		return
	}

	updated, err := h.app.Contracts.Update(r.Context(), mux.Vars(r)["id"], payload,
		r.Header.Get(FingerprintHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fault.New(fault.InvalidArgument, "limit must be an integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

func pageParams(rawOffset, rawLimit string) (offset, limit int, err error) {
	offset = 0
	if rawOffset != "" {
		if offset, err = strconv.Atoi(rawOffset); err != nil {
			return 0, 0, fault.New(fault.InvalidArgument, "offset must be an integer")
		}
	}
	limit = defaultPageLimit
	if rawLimit != "" {
		if limit, err = strconv.Atoi(rawLimit); err != nil {
			return 0, 0, fault.New(fault.InvalidArgument, "limit must be an integer")
		}
	}
	return offset, limit, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	code := fault.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(fault.HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  code.String(),
	})
}
