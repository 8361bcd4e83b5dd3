// Copyright (C) 2020 the DementedIGPU Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package grub

import (
	"os"
	"os/exec"
	fp "path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeley98/DementedIGPU/pkg/config"
	"github.com/akeley98/DementedIGPU/pkg/failure"
	"github.com/akeley98/DementedIGPU/pkg/fileutil"
	"github.com/akeley98/DementedIGPU/pkg/log/testlog"
	"github.com/akeley98/DementedIGPU/pkg/proc/proctest"
)

const (
	marker   = "demented_linux_entry"
	original = "#! /bin/sh\nset -e\nlinux_entry ()\n{\n  os=\"$1\"\n}\n"
	patched  = "#! /bin/sh\nset -e\nlinux_entry ()\n{\n  os=\"$1\"\n}\ndemented_linux_entry ()\n{\n  :\n}\n"
	diff     = `--- 10_linux
+++ 10_linux
@@ -4,3 +4,7 @@
 {
   os="$1"
 }
+demented_linux_entry ()
+{
+  :
+}
`
)

type fixture struct {
	dir     string
	script  string
	backup  string
	patch   string
	f       *proctest.Fake
	p       *Patcher
	slept   []time.Duration
	grep    []string
	patchAt []string
}

// newFixture writes content to a script in a temp dir and returns a Patcher
// whose digests match original and patched.
func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	fx := &fixture{dir: t.TempDir(), f: proctest.New()}
	fx.script = fp.Join(fx.dir, "10_linux")
	fx.backup = fp.Join(fx.dir, ".10_linux")
	fx.patch = fp.Join(fx.dir, "DementedIGPU.patch")
	require.NoError(t, os.WriteFile(fx.script, []byte(content), 0755))
	require.NoError(t, os.WriteFile(fx.patch, []byte(diff), 0644))

	cfg := config.Default().Grub
	cfg.Script = fx.script
	cfg.PatchFile = "DementedIGPU.patch"
	cfg.Backup = ".10_linux"
	cfg.Before = digestOf(t, fx.dir, original)
	cfg.After = digestOf(t, fx.dir, patched)
	fx.p = New(fx.f, cfg, fx.dir)
	fx.p.Sleep = func(d time.Duration) { fx.slept = append(fx.slept, d) }

	fx.grep = []string{"grep", marker, fx.script}
	fx.patchAt = []string{"patch", fx.script, fx.patch}
	fx.f.On(proctest.Result{}, fx.grep...).Passthrough = true
	return fx
}

func digestOf(t *testing.T, dir, content string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "digest")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	defer os.Remove(f.Name())
	d, err := fileutil.Digest(f.Name())
	require.NoError(t, err)
	return d
}

// fakePatch makes the patch command write content to the script.
func (fx *fixture) fakePatch(t *testing.T, code int, content string) {
	fx.f.On(proctest.Result{Code: code}, fx.patchAt...).Effect = func([]string) {
		require.NoError(t, os.WriteFile(fx.script, []byte(content), 0755))
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewResolvesPaths(t *testing.T) {
	p := New(proctest.New(), config.Default().Grub, "/opt/demented")
	assert.Equal(t, "/etc/grub.d/10_linux", p.Script)
	assert.Equal(t, "/opt/demented/DementedIGPU.patch", p.PatchFile)
	assert.Equal(t, "/opt/demented/.10_linux", p.Backup)
	assert.Equal(t, 15*time.Second, p.Pause)
}

func TestCheck(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	for _, td := range []struct {
		name    string
		content string
		want    State
	}{
		{"unpatched", original, Unpatched},
		{"patched", patched, AlreadyPatched},
	} {
		t.Run(td.name, func(t *testing.T) {
			fx := newFixture(t, td.content)
			got, err := fx.p.Check()
			require.NoError(t, err)
			assert.Equal(t, td.want, got)
		})
	}
}

func TestCheckGrepFails(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original)
	fx.f.On(proctest.Result{Code: 2}, fx.grep...)
	_, err := fx.p.Check()
	assert.True(t, failure.Is(err, failure.Subprocess))
}

func TestIdentityPatch(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original)
	// The script already has the patched digest; patch leaves it alone.
	fx.p.After = fx.p.Before
	fx.f.On(proctest.Result{}, fx.patchAt...)

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, fx.f.Count(fx.patchAt...))
	assert.Equal(t, original, read(t, fx.backup))
	assert.Equal(t, original, read(t, fx.script))
	assert.Empty(t, fx.slept)
	assert.Zero(t, tlog.WarnCount)
}

func TestPatch(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original)
	fx.fakePatch(t, 0, patched)

	o, err := fx.p.Patch()
	require.NoError(t, err)
	assert.Equal(t, PatchedNow, o.State)
	assert.Equal(t, fx.p.Before, o.Before)
	assert.Equal(t, fx.p.After, o.After)
	assert.Equal(t, original, read(t, fx.backup))
	assert.Equal(t, patched, read(t, fx.script))
	assert.Len(t, tlog.Filter(testlog.FilterLogPfx("Patching ")), 1)
	assert.Zero(t, tlog.WarnCount)
}

func TestAlreadyPatched(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, patched)
	fx.fakePatch(t, 0, "clobbered")

	o, err := fx.p.Patch()
	require.NoError(t, err)
	assert.Equal(t, AlreadyPatched, o.State)
	assert.Empty(t, o.Before)
	assert.Equal(t, fx.p.After, o.After)
	assert.Zero(t, fx.f.Count(fx.patchAt...))
	assert.Equal(t, patched, read(t, fx.script))
	assert.NoFileExists(t, fx.backup)
	assert.Zero(t, tlog.WarnCount)

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestAlreadyPatchedModified(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, patched+"# local edit\n")

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Len(t, tlog.Filter(testlog.FilterWarnPfx(fx.script+" hash is not as expected")), 1)
}

func TestBeforeMismatchPauses(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original+"# local edit\n")
	fx.p.Pause = 3 * time.Second
	fx.fakePatch(t, 0, patched)

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []time.Duration{3 * time.Second}, fx.slept)
	assert.Equal(t, 3, tlog.WarnCount)
	assert.Len(t, tlog.Filter(testlog.FilterLogPfx("Patching "+fx.script+" anyway.")), 1)
}

func TestAfterMismatchWarns(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original)
	fx.fakePatch(t, 0, patched+"# extra\n")

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, tlog.WarnCount)
}

func TestPatchExitStatus(t *testing.T) {
	for _, td := range []struct {
		name     string
		strict   bool
		wantErr  bool
		wantWarn int
	}{
		{"lenient", false, false, 2},
		{"strict", true, true, 0},
	} {
		t.Run(td.name, func(t *testing.T) {
			tlog := testlog.NewTestLog(t, true, false)
			defer tlog.Freeze()
			fx := newFixture(t, original)
			fx.p.StrictPatch = td.strict
			// rejected hunk; script untouched
			fx.f.On(proctest.Result{Code: 1}, fx.patchAt...)

			ran, err := fx.p.MaybePatch()
			if td.wantErr {
				assert.True(t, failure.Is(err, failure.Subprocess))
				assert.False(t, ran)
			} else {
				require.NoError(t, err)
				assert.True(t, ran)
			}
			// lenient: exit status warning plus after-digest warning
			assert.Equal(t, td.wantWarn, tlog.WarnCount)
		})
	}
}

func TestBackupFailure(t *testing.T) {
	for _, td := range []struct {
		name   string
		strict bool
	}{
		{"lenient", false},
		{"strict", true},
	} {
		t.Run(td.name, func(t *testing.T) {
			tlog := testlog.NewTestLog(t, true, false)
			defer tlog.Freeze()
			fx := newFixture(t, original)
			fx.p.Backup = fp.Join(fx.dir, "missing", ".10_linux")
			fx.p.StrictBackup = td.strict
			fx.fakePatch(t, 0, patched)

			ran, err := fx.p.MaybePatch()
			if td.strict {
				assert.True(t, failure.Is(err, failure.Validation))
				assert.False(t, ran)
				assert.Zero(t, fx.f.Count(fx.patchAt...))
				assert.Equal(t, original, read(t, fx.script))
				return
			}
			require.NoError(t, err)
			assert.True(t, ran)
			assert.Len(t, tlog.Filter(testlog.FilterWarnPfx("could not back up")), 1)
			assert.Equal(t, patched, read(t, fx.script))
		})
	}
}

func TestRealPatch(t *testing.T) {
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch not installed")
	}
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	fx := newFixture(t, original)
	fx.f.On(proctest.Result{}, fx.patchAt...).Passthrough = true

	ran, err := fx.p.MaybePatch()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, patched, read(t, fx.script))
	assert.Equal(t, original, read(t, fx.backup))
	assert.Zero(t, tlog.WarnCount)

	ran, err = fx.p.MaybePatch()
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestUpdateGrub(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	f := proctest.New()
	f.On(proctest.Result{}, "update-grub")
	require.NoError(t, UpdateGrub(f, "update-grub"))
	assert.Equal(t, 1, f.Count("update-grub"))

	f.On(proctest.Result{Code: 1}, "update-grub")
	assert.True(t, failure.Is(UpdateGrub(f, "update-grub"), failure.Subprocess))

	assert.True(t, failure.Is(UpdateGrub(f, ""), failure.Validation))
}
