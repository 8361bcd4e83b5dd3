// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

// Format: yyyy-mm-dd hh:mm:ss
const DefaultTimestampLayout = "2006-01-02 15:04:05"

var TimestampLayout = DefaultTimestampLayout
