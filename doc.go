// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// DementedIGPU sets up an Ubuntu laptop with hybrid nvidia/intel graphics so
// that the GRUB menu offers every kernel twice: a normal entry that boots
// graphical.target with the nvidia driver, and a second entry that boots
// DementedIGPU.target, which also wants bumblebeed.service so the discrete
// card is powered down unless explicitly used.
//
// cmd/dementedigpu runs three steps, each of which may be skipped:
//
//   - dependencies: detect or install the nvidia driver, install bumblebee
//     and disable its auto-start, and run prime-select if present.
//   - target: copy graphical.target to DementedIGPU.target next to it,
//     adding bumblebeed.service to the Wants line.
//   - grub: patch /etc/grub.d/10_linux (keeping a backup) and run
//     update-grub if the patch was applied.
//
// Defaults may be overridden by dementedigpu.yaml in the directory holding
// the executable. Use `mage -d build` to build and test.
package dementedigpu
