package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
)

type CodeHandler struct {
	alloc *codegen.Allocator
}

func NewCodeHandler(alloc *codegen.Allocator) *CodeHandler {
	return &CodeHandler{alloc: alloc}
}

type allocateRequest struct {
	ModuleType string `json:"module_type"`
	Year       int    `json:"year"`
}

type codeResponse struct {
	Code       string `json:"code"`
	ModuleType string `json:"module_type"`
	Year       int    `json:"year"`
	Sequence   int64  `json:"sequence"`
}

// AllocateCode handles POST /api/v1/codes.
func (h *CodeHandler) AllocateCode(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", codegen.ErrInvalidInput, err))
		return
	}

	code, err := h.alloc.Allocate(c.Request.Context(), req.ModuleType, req.Year)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := describe(string(code))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp)
}

// ParseCode handles GET /api/v1/codes/:code/parse.
func (h *CodeHandler) ParseCode(c *gin.Context) {
	resp, err := describe(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

func describe(code string) (codeResponse, error) {
	module, year, n, err := codegen.Parse(code)
	if err != nil {
		return codeResponse{}, err
	}
	return codeResponse{Code: code, ModuleType: module, Year: year, Sequence: n}, nil
}
