/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"os"

	genericapiserver "k8s.io/apiserver/pkg/server"
	"k8s.io/klog/v2"

	"github.com/amd-enterprise-ai/airm/pkg/dispatcher"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	d, err := dispatcher.New(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to init airm-dispatcher")
		os.Exit(-1)
	}
	if err := d.Run(ctx); err != nil {
		klog.ErrorS(err, "airm-dispatcher exited")
		os.Exit(-1)
	}
	klog.Flush()
}
