package metaserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/internal/metadatanode"
	"github.com/claudefs/claudefs/internal/telemetry/logger"
	"github.com/claudefs/claudefs/internal/telemetry/metric"
)

// Response is the standard JSON envelope for every endpoint except
// /metrics, which speaks the Prometheus exposition format directly.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Handler routes HTTP requests to the underlying MetadataNode and the
// metrics registry.
type Handler struct {
	node    *metadatanode.Node
	metrics *metric.Registry
	logger  logger.Logger
	mux     *http.ServeMux
}

// New creates a Handler wired to node, reporting through reg and log.
func New(node *metadatanode.Node, reg *metric.Registry, log logger.Logger) *Handler {
	h := &Handler{node: node, metrics: reg, logger: log, mux: http.NewServeMux()}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.Handle("GET /metrics", h.metrics.Handler())

	h.mux.HandleFunc("GET /admin/v1/status", h.handleStatus)
	h.mux.HandleFunc("GET /admin/v1/cluster", h.handleCluster)
	h.mux.HandleFunc("GET /admin/v1/statfs", h.handleStatFs)

	h.mux.HandleFunc("GET /v1/fs/lookup", h.handleLookup)
	h.mux.HandleFunc("GET /v1/fs/getattr", h.handleGetAttr)
	h.mux.HandleFunc("GET /v1/fs/readdir", h.handleReaddir)
	h.mux.HandleFunc("POST /v1/fs/mkdir", h.handleMkdir)
	h.mux.HandleFunc("POST /v1/fs/create", h.handleCreateFile)
	h.mux.HandleFunc("POST /v1/fs/unlink", h.handleUnlink)
	h.mux.HandleFunc("POST /v1/fs/rmdir", h.handleRmdir)
	h.mux.HandleFunc("POST /v1/fs/rename", h.handleRename)

	h.mux.HandleFunc("GET /v1/fs/xattr", h.handleGetXattr)
	h.mux.HandleFunc("POST /v1/fs/xattr", h.handleSetXattr)

	h.mux.HandleFunc("POST /admin/v1/quota/{uid}/{gid}", h.handleSetQuota)
	h.mux.HandleFunc("POST /admin/v1/worm/{ino}", h.handleProtectWorm)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Code:      "OK",
		Message:   "success",
		RequestID: r.Header.Get("X-Request-ID"),
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Code:      code,
		Message:   message,
		RequestID: r.Header.Get("X-Request-ID"),
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleError converts a domain error into the matching HTTP status.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		h.writeError(w, r, errorCodeToHTTPStatus(de.Code), de.Code, de.Error())
		return
	}
	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "CFS-SYS-5000", "internal server error")
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"), strings.HasSuffix(code, "-4049"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"), strings.HasSuffix(code, "-4092"), strings.HasSuffix(code, "-4094"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4030"), strings.HasSuffix(code, "-4031"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4291"):
		return http.StatusInsufficientStorage
	case strings.HasPrefix(code, "CFS-") && strings.Contains(code, "-400"):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.node.IsHealthy() {
		h.writeError(w, r, http.StatusServiceUnavailable, "CFS-SYS-5030", "node not ready")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.node.MetricsSnapshot()
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"healthy":      h.node.IsHealthy(),
		"inode_count":  h.node.InodeCount(),
		"cluster_size": h.node.ClusterStatus().TotalMembers,
	})
}

func (h *Handler) handleCluster(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.node.ClusterStatus())
}

func (h *Handler) handleStatFs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.node.StatFs())
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	parent, err := parseUint(r.URL.Query().Get("parent"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid parent")
		return
	}
	name := r.URL.Query().Get("name")
	entry, err := h.node.Lookup(r.Context(), parent, name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, entry)
}

func (h *Handler) handleGetAttr(w http.ResponseWriter, r *http.Request) {
	ino, err := parseUint(r.URL.Query().Get("ino"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid ino")
		return
	}
	attr, err := h.node.GetAttr(r.Context(), ino)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, attr)
}

func (h *Handler) handleReaddir(w http.ResponseWriter, r *http.Request) {
	dir, err := parseUint(r.URL.Query().Get("dir"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid dir")
		return
	}
	entries, err := h.node.Readdir(r.Context(), dir)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, entries)
}

type createRequest struct {
	Parent uint64 `json:"parent"`
	Name   string `json:"name"`
	Uid    uint32 `json:"uid"`
	Gid    uint32 `json:"gid"`
	Mode   uint32 `json:"mode"`
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid request body")
		return false
	}
	return true
}

func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	attr, err := h.node.CreateFile(r.Context(), req.Parent, req.Name, req.Uid, req.Gid, req.Mode)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, attr)
}

func (h *Handler) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	attr, err := h.node.Mkdir(r.Context(), req.Parent, req.Name, req.Uid, req.Gid, req.Mode)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, attr)
}

type parentNameRequest struct {
	Parent uint64 `json:"parent"`
	Name   string `json:"name"`
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req parentNameRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.node.Unlink(r.Context(), req.Parent, req.Name); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleRmdir(w http.ResponseWriter, r *http.Request) {
	var req parentNameRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.node.Rmdir(r.Context(), req.Parent, req.Name); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

type renameRequest struct {
	SrcParent uint64 `json:"src_parent"`
	SrcName   string `json:"src_name"`
	DstParent uint64 `json:"dst_parent"`
	DstName   string `json:"dst_name"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.node.Rename(r.Context(), req.SrcParent, req.SrcName, req.DstParent, req.DstName); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"renamed": true})
}

func (h *Handler) handleGetXattr(w http.ResponseWriter, r *http.Request) {
	ino, err := parseUint(r.URL.Query().Get("ino"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid ino")
		return
	}
	name := r.URL.Query().Get("name")
	v, err := h.node.GetXattr(r.Context(), ino, name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"value": string(v)})
}

type setXattrRequest struct {
	Ino   uint64 `json:"ino"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (h *Handler) handleSetXattr(w http.ResponseWriter, r *http.Request) {
	var req setXattrRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.node.SetXattr(r.Context(), req.Ino, req.Name, []byte(req.Value)); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"set": true})
}

type setQuotaRequest struct {
	MaxBytes  uint64 `json:"max_bytes"`
	MaxInodes uint64 `json:"max_inodes"`
}

func (h *Handler) handleSetQuota(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUint(r.PathValue("uid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid uid")
		return
	}
	gid, err := parseUint(r.PathValue("gid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid gid")
		return
	}
	var req setQuotaRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.node.QuotaManager().SetLimits(uint32(uid), uint32(gid), metadatanode.QuotaLimits{
		MaxBytes:  req.MaxBytes,
		MaxInodes: req.MaxInodes,
	})
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"set": true})
}

type protectWormRequest struct {
	RetainSeconds int64 `json:"retain_seconds"`
	LegalHold     bool  `json:"legal_hold"`
}

func (h *Handler) handleProtectWorm(w http.ResponseWriter, r *http.Request) {
	ino, err := parseUint(r.PathValue("ino"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "CFS-SYS-4000", "invalid ino")
		return
	}
	var req protectWormRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.node.WormManager().Protect(ino, time.Now().Add(time.Duration(req.RetainSeconds)*time.Second), req.LegalHold)
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"protected": true})
}
