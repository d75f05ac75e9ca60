package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alfachiu/rollball-api-tcp/share"
)

type StatusController struct {
	store *share.Store
}

func NewStatusController(store *share.Store) *StatusController {
	return &StatusController{store: store}
}

func (ctrl *StatusController) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": ctrl.store.RunID()})
}

// HandleSnapshot returns the last completed poll cycle, 204 before the first.
func (ctrl *StatusController) HandleSnapshot(c *gin.Context) {
	snap, ok := ctrl.store.Snapshot()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (ctrl *StatusController) HandleAnswers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"answers": ctrl.store.Answers()})
}
