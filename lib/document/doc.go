// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package document models the host application's document tree: a
// Document owns layers (which may nest), layers own items, and group
// items own child items. The task engine operates on this model
// directly in tests and in the mock panel host; against the real
// application the same operations run as script text, but the
// semantics here are the contract.
//
// Parent chains are typed all the way up: an item's parent is either
// another item (its group) or nothing, its owning layer is always
// known, and a layer's owner chain terminates at the Document. Code
// walking upward never depends on host sentinel objects.
//
// Stacking order: within a layer or group, index 0 is the backmost
// item and the last index is the frontmost. Collection order (layers
// first to last, items back to front) is the protocol's "zOrder".
package document
