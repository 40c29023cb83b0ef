/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// RandomHexSecret returns n random bytes hex-encoded. Used for one-shot
// dispatcher credentials; the caller sees the value exactly once.
func RandomHexSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TruncateKey keeps the first n characters followed by an ellipsis marker so
// a key stays recognizable without being usable.
func TruncateKey(key string, n int) string {
	if len(key) <= n {
		return key
	}
	return key[:n] + "..."
}

// FoldEqual compares case-insensitively, matching the case-folded uniqueness
// the store enforces on names.
func FoldEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ContainsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
