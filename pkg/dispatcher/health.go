/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// watcherIdleLimit is how long a watcher may go without progress before the
// health endpoint reports the dispatcher degraded.
const watcherIdleLimit = 5 * time.Minute

// healthRegistry tracks per-watcher progress stamps. A watcher stamps on every
// successful list and on every delivered event.
type healthRegistry struct {
	mu     sync.Mutex
	stamps map[string]time.Time
}

func newHealthRegistry() *healthRegistry {
	return &healthRegistry{stamps: map[string]time.Time{}}
}

func (h *healthRegistry) Stamp(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stamps[name] = time.Now()
}

// Idle returns the watchers without progress inside the window.
func (h *healthRegistry) Idle(window time.Duration) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var idle []string
	cutoff := time.Now().Add(-window)
	for name, at := range h.stamps {
		if at.Before(cutoff) {
			idle = append(idle, name)
		}
	}
	return idle
}

// serveHealth exposes /v1/health. It blocks; run it on its own goroutine.
func (d *Dispatcher) serveHealth() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/v1/health", func(c *gin.Context) {
		if idle := d.health.Idle(watcherIdleLimit); len(idle) > 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "degraded", "idleWatchers": idle})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	addr := fmt.Sprintf(":%d", d.cfg.HealthPort)
	klog.Infof("health endpoint listening on %s", addr)
	if err := engine.Run(addr); err != nil {
		klog.ErrorS(err, "health endpoint exited")
	}
}
