// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package cleanup gives the extraction engine transactional semantics
// over the output directory: everything the engine creates is tracked,
// and on any abnormal exit — an error, a cancellation, a panic — every
// tracked artifact is removed, so a failed extraction never leaves a
// partially-written partition image behind for a caller to mistake for
// a good one. It generalizes lang/destructor's Destroy-on-Close pattern
// into commit-or-abort semantics for a whole directory tree.
package cleanup

import (
	"os"
	"sync"

	"github.com/coreos/pkg/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/flatcar-linux/otaextract", "cleanup")

// Transaction tracks every file and directory the engine has created for
// one extraction run. Commit marks the run successful, after which
// Abort is a no-op; calling Abort without Commit removes everything
// tracked so far. Both are idempotent and safe to call more than once.
type Transaction struct {
	mu        sync.Mutex
	files     []string
	madeDir   string
	committed bool
	aborted   bool
}

// New returns an empty Transaction.
func New() *Transaction {
	return &Transaction{}
}

// TrackFile records path as created by this run, to be removed on Abort.
func (t *Transaction) TrackFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = append(t.files, path)
}

// TrackCreatedDir records that this run created the output directory
// itself (as opposed to it having pre-existed), so Abort removes it too.
func (t *Transaction) TrackCreatedDir(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.madeDir = dir
}

// Commit marks the transaction successful. After Commit, Abort does
// nothing.
func (t *Transaction) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
}

// Abort removes every tracked file and, if this run created the output
// directory, the directory itself. It is a no-op if Commit already ran
// or Abort already ran.
func (t *Transaction) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.aborted {
		return
	}
	t.aborted = true

	for _, f := range t.files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			plog.Warningf("cleanup: removing %s: %v", f, err)
		}
	}
	if t.madeDir != "" {
		if err := os.Remove(t.madeDir); err != nil && !os.IsNotExist(err) {
			plog.Warningf("cleanup: removing %s: %v", t.madeDir, err)
		}
	}
}
