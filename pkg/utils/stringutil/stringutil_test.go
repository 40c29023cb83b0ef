/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomHexSecret(t *testing.T) {
	secret, err := RandomHexSecret(16)
	assert.NoError(t, err)
	assert.Len(t, secret, 32)

	other, err := RandomHexSecret(16)
	assert.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestTruncateKey(t *testing.T) {
	assert.Equal(t, "abcd...", TruncateKey("abcdefgh", 4))
	assert.Equal(t, "abcd", TruncateKey("abcd", 4))
	assert.Equal(t, "ab", TruncateKey("ab", 4))
	assert.Equal(t, "", TruncateKey("", 4))
}

func TestFoldEqual(t *testing.T) {
	assert.True(t, FoldEqual("Kaiwo", "kaiwo"))
	assert.True(t, FoldEqual("", ""))
	assert.False(t, FoldEqual("kaiwo", "kaiw"))
}

func TestContainsFold(t *testing.T) {
	list := []string{"kaiwo", "Minio-Users", "platformadmins"}
	assert.True(t, ContainsFold(list, "KAIWO"))
	assert.True(t, ContainsFold(list, "minio-users"))
	assert.False(t, ContainsFold(list, "alpha"))
	assert.False(t, ContainsFold(nil, "kaiwo"))
}
