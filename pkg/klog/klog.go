/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package klog

import (
	"flag"
	"strconv"

	"k8s.io/klog/v2"
)

// Init points klog at the configured log file while keeping stderr output.
// An empty path logs to stderr only. Must run after the options flags are
// registered since klog shares the default flag set.
func Init(logfilePath string, logFileSizeMb int) error {
	klog.InitFlags(nil)
	settings := map[string]string{
		"alsologtostderr":  "true",
		"logtostderr":      "false",
		"skip_log_headers": "true",
	}
	if logfilePath != "" {
		settings["log_file"] = logfilePath
	}
	if logFileSizeMb > 0 {
		settings["log_file_max_size"] = strconv.Itoa(logFileSizeMb)
	}
	for name, value := range settings {
		if err := flag.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
