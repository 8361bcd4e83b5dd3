// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package fileutil

import (
	"encoding/hex"
	"io"
	"os"

	sha256 "github.com/minio/sha256-simd"

	"github.com/akeley98/DementedIGPU/pkg/failure"
)

// Digest returns the hex sha256 of the file's content.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", failure.Wrap(failure.NotFound, err, "opening %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", failure.Wrap(failure.Checksum, err, "reading %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
