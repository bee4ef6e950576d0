package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmed/ledgerd/internal/node"
	"github.com/openmed/ledgerd/internal/peers"
)

// PeerHandler handles peer registration and consensus resolution
type PeerHandler struct {
	node *node.Node
}

// NewPeerHandler creates a new PeerHandler
func NewPeerHandler(n *node.Node) *PeerHandler {
	return &PeerHandler{node: n}
}

// Register adds one or more peer addresses. The batch is all-or-nothing: a
// single invalid address rejects the request without registering any of it.
// POST /api/v1/peers
func (h *PeerHandler) Register(c *gin.Context) {
	var body struct {
		Addresses []string `json:"addresses"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Addresses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must carry a non-empty addresses list"})
		return
	}

	registered, err := h.node.RegisterPeers(body.Addresses)
	if err != nil {
		if errors.Is(err, peers.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Peers registered",
		"registered": registered,
		"peers":      h.node.ListPeers(),
	})
}

// List returns the known peer addresses
// GET /api/v1/peers
func (h *PeerHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"peers": h.node.ListPeers()})
}

// Resolve runs one consensus round against all known peers
// POST /api/v1/consensus/resolve
func (h *PeerHandler) Resolve(c *gin.Context) {
	outcome := h.node.ResolveConsensus(c.Request.Context())
	c.JSON(http.StatusOK, outcome)
}
