// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/crdkit/pkg/object"
)

// ConfigMapClient keeps the inventory in a ConfigMap: the data keys are
// the ObjMetadata strings of the applied objects, the values are empty.
type ConfigMapClient struct {
	Client    client.Client
	Name      string
	Namespace string
}

var _ Client = &ConfigMapClient{}

func (c *ConfigMapClient) key() client.ObjectKey {
	return client.ObjectKey{Namespace: c.Namespace, Name: c.Name}
}

// Load reads the ConfigMap. A ConfigMap without the inventory label is
// treated as a naming conflict rather than silently adopted.
func (c *ConfigMapClient) Load(ctx context.Context) (*Inventory, error) {
	klog.V(4).Infof("loading inventory: %s", c.key())
	cm := &corev1.ConfigMap{}
	if err := c.Client.Get(ctx, c.key(), cm); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory %s: %w", c.key(), err)
	}
	id, found := cm.Labels[InventoryLabel]
	if !found || id == "" {
		return nil, fmt.Errorf("ConfigMap %s exists but is not an inventory: missing label %s", c.key(), InventoryLabel)
	}
	inv := &Inventory{ID: id}
	keys := make([]string, 0, len(cm.Data))
	for key := range cm.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		objID, err := object.ParseObjMetadata(key)
		if err != nil {
			return nil, fmt.Errorf("invalid entry in inventory %s: %w", c.key(), err)
		}
		inv.Objects = append(inv.Objects, objID)
	}
	klog.V(4).Infof("loaded inventory %s with %d object(s)", c.key(), len(inv.Objects))
	return inv, nil
}

// Store creates or replaces the ConfigMap. An inventory without ID gets a
// new UUID, which is written back to inv.
func (c *ConfigMapClient) Store(ctx context.Context, inv *Inventory) error {
	if inv == nil {
		return fmt.Errorf("inventory must not be nil")
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	hash, err := Hash(inv.Objects)
	if err != nil {
		return err
	}
	data := make(map[string]string, len(inv.Objects))
	for _, id := range inv.Objects {
		data[id.String()] = ""
	}

	cm := &corev1.ConfigMap{}
	err = c.Client.Get(ctx, c.key(), cm)
	switch {
	case apierrors.IsNotFound(err):
		cm = &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:        c.Name,
				Namespace:   c.Namespace,
				Labels:      map[string]string{InventoryLabel: inv.ID},
				Annotations: map[string]string{InventoryHash: hash},
			},
			Data: data,
		}
		klog.V(4).Infof("creating inventory %s (%d objects)", c.key(), len(data))
		if err := c.Client.Create(ctx, cm); err != nil {
			return fmt.Errorf("failed to create inventory %s: %w", c.key(), err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to get inventory %s: %w", c.key(), err)
	}

	if owner := cm.Labels[InventoryLabel]; owner != inv.ID {
		return fmt.Errorf("inventory %s belongs to %q, not %q", c.key(), owner, inv.ID)
	}
	if cm.Annotations == nil {
		cm.Annotations = map[string]string{}
	}
	cm.Annotations[InventoryHash] = hash
	cm.Data = data
	klog.V(4).Infof("updating inventory %s (%d objects)", c.key(), len(data))
	if err := c.Client.Update(ctx, cm); err != nil {
		return fmt.Errorf("failed to update inventory %s: %w", c.key(), err)
	}
	return nil
}

// Delete removes the ConfigMap.
func (c *ConfigMapClient) Delete(ctx context.Context) error {
	klog.V(4).Infof("deleting inventory: %s", c.key())
	cm := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: c.Name, Namespace: c.Namespace}}
	if err := c.Client.Delete(ctx, cm); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete inventory %s: %w", c.key(), err)
	}
	return nil
}
