package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/models"
	"github.com/openmed/ledgerd/internal/node"
)

// LedgerHandler handles record submission, mining and chain retrieval
type LedgerHandler struct {
	node *node.Node
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(n *node.Node) *LedgerHandler {
	return &LedgerHandler{node: n}
}

// SubmitRecord enqueues a record for the next mined block
// POST /api/v1/records
func (h *LedgerHandler) SubmitRecord(c *gin.Context) {
	var record models.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
		return
	}
	if record.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Record must have at least one field"})
		return
	}

	index := h.node.SubmitRecord(record)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Record will be added to the next mined block",
		"index":   index,
	})
}

// Mine runs the proof search and appends a new block
// POST /api/v1/mine
func (h *LedgerHandler) Mine(c *gin.Context) {
	block, err := h.node.MineBlock(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNothingPending):
			c.JSON(http.StatusOK, gin.H{"message": "No pending records to mine"})
		case errors.Is(err, ledger.ErrStaleMine):
			c.JSON(http.StatusConflict, gin.H{"error": "Chain changed during mining, block discarded; retry mining"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "New block forged",
		"block":   block,
	})
}

// GetChain returns the full chain and its length
// GET /api/v1/chain
func (h *LedgerHandler) GetChain(c *gin.Context) {
	c.JSON(http.StatusOK, h.node.GetChain())
}

// GetDifficulty returns the mining difficulty currently in force
// GET /api/v1/difficulty
func (h *LedgerHandler) GetDifficulty(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"difficulty": h.node.Difficulty()})
}

// SetDifficulty updates the difficulty used by future mining
// PUT /api/v1/difficulty
func (h *LedgerHandler) SetDifficulty(c *gin.Context) {
	var body struct {
		Difficulty int `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must carry an integer difficulty"})
		return
	}

	if err := h.node.SetDifficulty(body.Difficulty); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Mining difficulty updated",
		"difficulty": body.Difficulty,
	})
}

// Info describes this node to peers
// GET /api/v1/node/info
func (h *LedgerHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.node.Info())
}
