/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package options

import (
	"flag"
	"fmt"
)

// Options holds the controller command line. Everything else comes from the
// config file it points at.
type Options struct {
	Config      string
	LogfilePath string
	LogFileSize int
}

func (opt *Options) InitFlags() error {
	if opt == nil {
		return fmt.Errorf("the options is not initialized")
	}
	flag.StringVar(&opt.Config, "config", "", "Path to the airm config.yaml")
	flag.StringVar(&opt.LogfilePath, "log_file_path", "", "Path to the log file")
	flag.IntVar(&opt.LogFileSize, "log_file_size", 0,
		"Maximum size of the log file in megabytes. 0 means unlimited.")
	flag.Parse()

	if opt.Config == "" {
		return fmt.Errorf("-config is not found")
	}
	return nil
}
