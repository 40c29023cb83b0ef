/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

// splitManifests decodes a multi-document YAML stream into unstructured
// objects, skipping empty documents.
func splitManifests(manifests string) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(strings.NewReader(manifests)))
	var objs []*unstructured.Unstructured
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			return objs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to split manifests: %w", err)
		}
		obj, err := decodeManifest(doc)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			objs = append(objs, obj)
		}
	}
}

// decodeManifest parses one YAML document. A document with no kind is treated
// as empty and dropped.
func decodeManifest(doc []byte) (*unstructured.Unstructured, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("invalid manifest document: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	obj := &unstructured.Unstructured{Object: raw}
	if obj.GetKind() == "" || obj.GetAPIVersion() == "" {
		return nil, fmt.Errorf("manifest document missing apiVersion or kind")
	}
	return obj, nil
}
