// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains numeric helpers used across multiple packages. For
// example, periodic angle wrapping and edge detection on sampled signals.
package common
