/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/amd-enterprise-ai/airm/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		klog.ErrorS(err, "failed to init airm-controller")
		os.Exit(-1)
	}
	s.Start()
}
