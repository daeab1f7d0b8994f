package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemlite/internal/application/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

const (
	defaultTraceDepth  = 3
	defaultSearchLimit = 20
)

// PathwayHandler serves the pathway and compound endpoints.
type PathwayHandler struct {
	svc    pathway.Service
	logger logging.Logger
}

// NewPathwayHandler creates a handler backed by svc.
func NewPathwayHandler(svc pathway.Service, logger logging.Logger) *PathwayHandler {
	return &PathwayHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the handler under rg, normally /api/v1.
func (h *PathwayHandler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/pathways")
	p.POST("", h.Create)
	p.GET("", h.List)
	p.GET("/:id", h.Get)
	p.DELETE("/:id", h.Delete)

	p.POST("/:id/reactions", h.AddReaction)
	p.PUT("/:id/reactions/:rid", h.ReplaceReaction)
	p.DELETE("/:id/reactions/:rid", h.DeleteReaction)
	p.POST("/:id/reactions/:rid/scale", h.ScaleReaction)
	p.GET("/:id/reactions/:rid/smiles", h.ReactionSMILES)
	p.POST("/:id/compounds/rename", h.RenameCompound)
	p.GET("/:id/compounds/:cid/trace", h.Trace)

	p.GET("/:id/net", h.NetReaction)
	p.GET("/:id/pseudo", h.PseudoReaction)
	p.GET("/:id/matrix", h.Matrix)

	p.POST("/:id/snapshots", h.CreateSnapshot)
	p.GET("/:id/snapshots", h.ListSnapshots)

	rg.GET("/compounds/search", h.SearchCompounds)
}

// Create stores a new pathway document.
func (h *PathwayHandler) Create(c *gin.Context) {
	var doc chem.PathwayDTO
	if err := c.ShouldBindJSON(&doc); err != nil {
		writeBindError(c, err)
		return
	}
	out, err := h.svc.Create(c.Request.Context(), &doc)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Header("Location", "/api/v1/pathways/"+out.ID)
	writeData(c, http.StatusCreated, out)
}

// List pages through stored pathway summaries.
func (h *PathwayHandler) List(c *gin.Context) {
	page := parsePagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page)
	if err != nil {
		writeAppError(c, err)
		return
	}
	page.Total = total
	writePage(c, items, page)
}

// Get returns the pathway document, or its text rendering with ?format=text.
func (h *PathwayHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if c.Query("format") == "text" {
		text, err := h.svc.Render(c.Request.Context(), id)
		if err != nil {
			writeAppError(c, err)
			return
		}
		c.String(http.StatusOK, text)
		return
	}
	out, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// Delete removes a pathway.
func (h *PathwayHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddReaction appends a reaction, registering the compounds sent with it.
func (h *PathwayHandler) AddReaction(c *gin.Context) {
	var req chem.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	out, err := h.svc.AddReaction(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusCreated, out)
}

// ReplaceReaction takes the reaction id from the path; any id in the body
// is overridden.
func (h *PathwayHandler) ReplaceReaction(c *gin.Context) {
	var req chem.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if rid := c.Param("rid"); req.Reaction.ID != rid {
		if req.Reaction.ID != "" {
			h.logger.Debug("reaction id in body overridden by path",
				logging.String("path", rid), logging.String("body", req.Reaction.ID))
		}
		req.Reaction.ID = rid
	}
	out, err := h.svc.ReplaceReaction(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// DeleteReaction removes a reaction. With ?prune=true compounds left without
// a reaction are dropped too.
func (h *PathwayHandler) DeleteReaction(c *gin.Context) {
	prune, _ := strconv.ParseBool(c.Query("prune"))
	out, err := h.svc.DeleteReaction(c.Request.Context(), c.Param("id"), c.Param("rid"), prune)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

type scaleRequest struct {
	Factor *float64 `json:"factor" binding:"required"`
}

// ScaleReaction multiplies one reaction's coefficients by the body factor.
func (h *PathwayHandler) ScaleReaction(c *gin.Context) {
	var req scaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	out, err := h.svc.ScaleReaction(c.Request.Context(), c.Param("id"), c.Param("rid"), *req.Factor)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// ReactionSMILES renders one reaction as reaction SMILES.
func (h *PathwayHandler) ReactionSMILES(c *gin.Context) {
	smiles, err := h.svc.ReactionSMILES(c.Request.Context(), c.Param("id"), c.Param("rid"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"reaction": c.Param("rid"), "smiles": smiles})
}

// RenameCompound renames a compound across the pathway.
func (h *PathwayHandler) RenameCompound(c *gin.Context) {
	var req chem.RenameCompoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	out, err := h.svc.RenameCompound(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// Trace walks the graph projection from a compound. direction is "down"
// (default) or "up".
func (h *PathwayHandler) Trace(c *gin.Context) {
	downstream := true
	switch c.DefaultQuery("direction", "down") {
	case "down":
	case "up":
		downstream = false
	default:
		writeAppError(c, errors.InvalidParam("direction must be up or down"))
		return
	}
	depth := defaultTraceDepth
	if v := c.Query("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeAppError(c, errors.InvalidParam("depth must be an integer").WithDetail("depth="+v))
			return
		}
		depth = d
	}
	ids, err := h.svc.Trace(c.Request.Context(), c.Param("id"), c.Param("cid"), downstream, depth)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, ids)
}

// NetReaction sums the reactions named by repeated rxn parameters, or every
// reaction when none are given.
func (h *PathwayHandler) NetReaction(c *gin.Context) {
	out, err := h.svc.NetReaction(c.Request.Context(), c.Param("id"), c.QueryArray("rxn"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// PseudoReaction returns the boundary exchange of a segment.
func (h *PathwayHandler) PseudoReaction(c *gin.Context) {
	out, err := h.svc.PseudoReaction(c.Request.Context(), c.Param("id"), c.QueryArray("rxn"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// Matrix returns the stoichiometric matrix.
func (h *PathwayHandler) Matrix(c *gin.Context) {
	out, err := h.svc.Matrix(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, out)
}

// CreateSnapshot stores the current version in object storage.
func (h *PathwayHandler) CreateSnapshot(c *gin.Context) {
	info, err := h.svc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	h.logger.Info("snapshot stored",
		logging.String("pathway_id", info.PathwayID),
		logging.Int("version", info.Version),
		logging.String("key", info.Key))
	writeData(c, http.StatusCreated, info)
}

// ListSnapshots lists the stored snapshots of a pathway.
func (h *PathwayHandler) ListSnapshots(c *gin.Context) {
	infos, err := h.svc.Snapshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, infos)
}

// SearchCompounds runs a full-text compound query.
func (h *PathwayHandler) SearchCompounds(c *gin.Context) {
	limit := defaultSearchLimit
	if v := c.Query("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	hits, err := h.svc.SearchCompounds(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeData(c, http.StatusOK, hits)
}
