/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package dispatcher

import (
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	kubeClientQps   = 50
	kubeClientBurst = 100
)

// kubeClients bundles the typed, dynamic and mapping clients the reconciler
// needs. The mapper is refreshed lazily when a kind is not found, so CRDs
// installed after startup still resolve.
type kubeClients struct {
	kube      kubernetes.Interface
	dynamic   dynamic.Interface
	discovery discovery.DiscoveryInterface
}

func newKubeClients(useLocalContext bool) (*kubeClients, error) {
	cfg, err := restConfig(useLocalContext)
	if err != nil {
		return nil, err
	}
	cfg.QPS = kubeClientQps
	cfg.Burst = kubeClientBurst
	kube, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &kubeClients{kube: kube, dynamic: dyn, discovery: disc}, nil
}

func restConfig(useLocalContext bool) (*rest.Config, error) {
	if useLocalContext {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	}
	return rest.InClusterConfig()
}

// resourceFor maps a kind to its resource, rebuilding the mapper on a miss so
// freshly installed CRDs resolve without a restart.
func (k *kubeClients) resourceFor(gvk schema.GroupVersionKind) (schema.GroupVersionResource, bool, error) {
	mapping, err := k.mappingFor(gvk)
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}
	namespaced := mapping.Scope.Name() == meta.RESTScopeNameNamespace
	return mapping.Resource, namespaced, nil
}

func (k *kubeClients) mappingFor(gvk schema.GroupVersionKind) (*meta.RESTMapping, error) {
	groups, err := restmapper.GetAPIGroupResources(k.discovery)
	if err != nil {
		return nil, err
	}
	mapper := restmapper.NewDiscoveryRESTMapper(groups)
	return mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
}
