/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes control-plane gauges and counters on a dedicated
// listener so the API port stays free of scrape traffic.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

var (
	allocatedGpus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "airm",
		Name:      "allocated_gpus",
		Help:      "GPUs currently granted to a project quota",
	}, []string{"organization", "cluster", "project"})
	allocatedVram = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "airm",
		Name:      "allocated_vram_bytes",
		Help:      "GPU memory in bytes currently granted to a project quota",
	}, []string{"organization", "cluster", "project"})
	clusterCapacityGpus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "airm",
		Name:      "cluster_capacity_gpus",
		Help:      "Schedulable GPUs reported by cluster inventory",
	}, []string{"organization", "cluster"})
	messagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airm",
		Name:      "messages_published_total",
		Help:      "Messages confirmed by the broker, by type",
	}, []string{"cluster", "type"})
	messagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airm",
		Name:      "messages_consumed_total",
		Help:      "Messages processed from the common queue, by type and result",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(allocatedGpus)
	prometheus.MustRegister(allocatedVram)
	prometheus.MustRegister(clusterCapacityGpus)
	prometheus.MustRegister(messagesPublished)
	prometheus.MustRegister(messagesConsumed)
}

// SetQuotaAllocation records the granted GPU and VRAM share of one project.
func SetQuotaAllocation(organization, cluster, project string, gpus int64, vramBytes int64) {
	allocatedGpus.WithLabelValues(organization, cluster, project).Set(float64(gpus))
	allocatedVram.WithLabelValues(organization, cluster, project).Set(float64(vramBytes))
}

// ClearQuotaAllocation drops the series of a removed quota so stale values do
// not linger on the scrape page.
func ClearQuotaAllocation(organization, cluster, project string) {
	allocatedGpus.DeleteLabelValues(organization, cluster, project)
	allocatedVram.DeleteLabelValues(organization, cluster, project)
}

func SetClusterCapacity(organization, cluster string, gpus int64) {
	clusterCapacityGpus.WithLabelValues(organization, cluster).Set(float64(gpus))
}

func ClearCluster(organization, cluster string) {
	clusterCapacityGpus.DeleteLabelValues(organization, cluster)
	allocatedGpus.DeletePartialMatch(prometheus.Labels{"organization": organization, "cluster": cluster})
	allocatedVram.DeletePartialMatch(prometheus.Labels{"organization": organization, "cluster": cluster})
}

func CountPublished(cluster string, messageType v1.MessageType) {
	messagesPublished.WithLabelValues(cluster, string(messageType)).Inc()
}

func CountConsumed(messageType v1.MessageType, result string) {
	messagesConsumed.WithLabelValues(string(messageType), result).Inc()
}

// Serve blocks on the scrape listener. Run it on its own goroutine.
func Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	klog.Infof("metrics listening on :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		klog.ErrorS(err, "metrics server exited")
	}
}
