// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layer holds the compositor's scene graph.
//
// Every layer lives in a Tree and is identified by an ID. The authoring
// half of a layer, AuthoringNode, is mutated by layout and paint on the
// authoring goroutine. The render half, RenderNode, is owned by the
// compositing goroutine together with every device texture. The two halves
// keep separate parent and child links. PrepareCommit paints dirty
// contents on the authoring goroutine, then Commit copies the authoring
// attributes, links and painted pixels into the render half, ID by ID.
//
// Calls that must hand a resource to the compositing goroutine atomically
// (destroying a layer, attaching a plugin or video source, replacing
// animations) go through the tree's Dispatcher and block until done.
package layer

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/compositor/gpu"
	"github.com/gogpu/compositor/texture"
)

// ID identifies a layer within its Tree. The zero ID is never used.
type ID uint64

// Dispatcher runs functions on the compositing goroutine.
type Dispatcher interface {
	// Sync runs fn on the compositing goroutine and waits for it.
	Sync(fn func())

	// Async queues fn on the compositing goroutine.
	Async(fn func())
}

// InlineDispatcher runs every function on the calling goroutine. A tree
// using it must have every method, authoring and compositing alike,
// called from one goroutine.
type InlineDispatcher struct{}

// Sync calls fn.
func (InlineDispatcher) Sync(fn func()) { fn() }

// Async calls fn.
func (InlineDispatcher) Async(fn func()) { fn() }

// CommitNotifier is told when the tree has changes to commit.
type CommitNotifier interface {
	NotifyCommit()
}

// CommitNotifierFunc adapts a function to CommitNotifier.
type CommitNotifierFunc func()

// NotifyCommit calls f.
func (f CommitNotifierFunc) NotifyCommit() { f() }

// Renderer is the engine that draws render nodes. A node registers with
// the renderer the first time it is walked and unregisters when it is
// finalized.
type Renderer interface {
	AddLayer(n *RenderNode)
	RemoveLayer(n *RenderNode)
	Device() gpu.Device
}

// TreeOption configures a Tree.
type TreeOption func(*treeOptions)

type treeOptions struct {
	dispatcher Dispatcher
	notifier   CommitNotifier
	stats      *texture.Tracker
	tileEdge   int
	strict     bool
	clock      func() time.Time
}

func defaultTreeOptions() treeOptions {
	return treeOptions{
		dispatcher: InlineDispatcher{},
		tileEdge:   texture.MaxTileEdge,
		clock:      time.Now,
	}
}

// WithDispatcher routes synchronous calls to the compositing goroutine.
func WithDispatcher(d Dispatcher) TreeOption {
	return func(o *treeOptions) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithCommitNotifier sets the callback for pending changes.
func WithCommitNotifier(n CommitNotifier) TreeOption {
	return func(o *treeOptions) { o.notifier = n }
}

// WithStats records texture usage of every layer in s.
func WithStats(s *texture.Tracker) TreeOption {
	return func(o *treeOptions) { o.stats = s }
}

// WithTileEdge sets the largest tile edge.
func WithTileEdge(edge int) TreeOption {
	return func(o *treeOptions) {
		if edge > 0 {
			o.tileEdge = edge
		}
	}
}

// WithStrictInvariants makes invariant violations panic instead of
// logging a warning.
func WithStrictInvariants(strict bool) TreeOption {
	return func(o *treeOptions) { o.strict = strict }
}

// WithClock sets the time source used to start animations.
func WithClock(now func() time.Time) TreeOption {
	return func(o *treeOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// Tree is the arena holding both halves of every layer.
//
// Authoring methods are safe to call from any goroutine as long as the
// Dispatcher really runs on a separate compositing goroutine; they
// serialize on the tree mutex, which Commit also holds, so a commit never
// observes a half-applied mutation. RenderNode methods and Commit must
// only run on the compositing goroutine.
type Tree struct {
	opts treeOptions

	mu        sync.Mutex
	nextID    ID
	authoring map[ID]*AuthoringNode
	root      ID

	// Compositing goroutine only.
	render     map[ID]*RenderNode
	renderRoot ID

	layoutDepth   atomic.Int32
	commitPending atomic.Bool
}

// NewTree returns an empty tree.
func NewTree(opts ...TreeOption) *Tree {
	o := defaultTreeOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Tree{
		opts:      o,
		authoring: make(map[ID]*AuthoringNode),
		render:    make(map[ID]*RenderNode),
	}
}

// NewLayer creates a detached authoring node. Its render twin is created
// by the first commit that reaches it.
func (t *Tree) NewLayer() *AuthoringNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	n := &AuthoringNode{
		tree: t,
		id:   t.nextID,
		geo:  DefaultGeometry(),
	}
	t.authoring[n.id] = n
	return n
}

// SetRoot makes n the root of the committed tree. The root itself is never
// drawn; its sublayers are. A nil n clears the root.
func (t *Tree) SetRoot(n *AuthoringNode) {
	t.mu.Lock()
	if n == nil {
		t.root = 0
	} else {
		t.root = n.id
	}
	t.mu.Unlock()
	t.requestCommit()
}

// Root returns the authoring root, or nil.
func (t *Tree) Root() *AuthoringNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.authoring[t.root]
}

// Len returns the number of live authoring nodes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.authoring)
}

// BeginLayout marks the start of a layout pass. Commits requested until
// the matching EndLayout are skipped. Calls nest.
func (t *Tree) BeginLayout() {
	t.layoutDepth.Add(1)
}

// EndLayout ends a layout pass started by BeginLayout.
func (t *Tree) EndLayout() {
	if t.layoutDepth.Add(-1) < 0 {
		t.layoutDepth.Store(0)
		t.violation("EndLayout without BeginLayout")
	}
}

// InLayout reports whether a layout pass is in progress.
func (t *Tree) InLayout() bool {
	return t.layoutDepth.Load() > 0
}

// CommitPending reports whether changes are waiting for a commit.
func (t *Tree) CommitPending() bool {
	return t.commitPending.Load()
}

// requestCommit notifies once per transition to pending.
func (t *Tree) requestCommit() {
	if t.commitPending.CompareAndSwap(false, true) && t.opts.notifier != nil {
		t.opts.notifier.NotifyCommit()
	}
}

// violation reports a broken invariant.
func (t *Tree) violation(format string, args ...any) {
	msg := "compositor: " + fmt.Sprintf(format, args...)
	if t.opts.strict {
		panic(msg)
	}
	slogger().Warn(msg)
}

// PrepareCommit paints every layer with dirty contents and stages the
// pixels for the next Commit. It runs on the authoring goroutine. Painters
// are called without the tree lock, so they may read or mutate the tree;
// a layer whose content or bounds change while it is painted is painted
// again on the next pass. It does nothing while a layout pass is in
// progress.
func (t *Tree) PrepareCommit() {
	if t.InLayout() {
		return
	}

	t.mu.Lock()
	var jobs []paintJob
	if root := t.authoring[t.root]; root != nil {
		jobs = t.collectPaintJobs(root, jobs)
	}
	t.mu.Unlock()

	if len(jobs) == 0 {
		return
	}
	for i := range jobs {
		jobs[i].paint()
	}

	t.mu.Lock()
	for i := range jobs {
		jobs[i].stage()
	}
	t.mu.Unlock()
}

// collectPaintJobs appends a job for every dirty layer under n. Caller
// must hold mu.
func (t *Tree) collectPaintJobs(n *AuthoringNode, jobs []paintJob) []paintJob {
	if n.contentsDirty {
		if job, ok := n.takePaintJob(); ok {
			jobs = append(jobs, job)
		}
	}
	for _, id := range n.children {
		if c := t.authoring[id]; c != nil {
			jobs = t.collectPaintJobs(c, jobs)
		}
	}
	return jobs
}

// Commit copies the authoring tree, and the contents staged by
// PrepareCommit, into the render tree. It must run on the compositing
// goroutine and never calls a painter. It returns false, leaving the
// render tree untouched, while a layout pass is in progress.
func (t *Tree) Commit() bool {
	if t.InLayout() {
		slogger().Debug("layer: commit skipped during layout")
		return false
	}

	t.mu.Lock()
	t.commitPending.Store(false)
	again := false
	if root := t.authoring[t.root]; root != nil {
		again = t.commitNode(root)
		t.renderRoot = root.id
	} else {
		t.renderRoot = 0
	}
	t.mu.Unlock()

	// Contents dirtied after PrepareCommit, or lost by the texture
	// manager, need another pass.
	if again {
		t.requestCommit()
	}
	return true
}

// commitNode copies n and its subtree. It reports whether any layer still
// has contents to paint. Caller must hold mu.
func (t *Tree) commitNode(n *AuthoringNode) bool {
	rn := t.renderFor(n.id)

	rn.geo = n.geo
	rn.setContent(n.content)
	if st := n.staged; st != nil {
		n.staged = nil
		if st.gen == n.contentGen {
			rn.setNeedsDisplay(st.pix, st.dirty, st.required)
		}
	}
	if rn.tex.TakeRepaint() && (n.content.Kind == ContentImage || n.content.Kind == ContentOwn) {
		n.allocatedSize = image.Point{}
		n.setNeedsDisplayLocked()
	}
	again := n.contentsDirty
	rn.setSublayers(n.children)

	for _, id := range n.children {
		if c := t.authoring[id]; c != nil {
			if t.commitNode(c) {
				again = true
			}
		}
	}
	return again
}

// renderFor returns the render twin of id, creating it on first use.
// Compositing goroutine only.
func (t *Tree) renderFor(id ID) *RenderNode {
	rn := t.render[id]
	if rn == nil {
		rn = newRenderNode(t, id)
		t.render[id] = rn
	}
	return rn
}

// RenderRoot returns the root of the last committed tree, or nil.
// Compositing goroutine only.
func (t *Tree) RenderRoot() *RenderNode {
	return t.render[t.renderRoot]
}

// RenderNode returns the render twin of id, or nil before its first
// commit. Compositing goroutine only.
func (t *Tree) RenderNode(id ID) *RenderNode {
	return t.render[id]
}

// finalize tears down the render twin of id. Compositing goroutine only.
func (t *Tree) finalize(id ID) {
	rn := t.render[id]
	if rn == nil {
		return
	}
	rn.removeFromSuperlayer()
	for _, cid := range rn.children {
		if c := t.render[cid]; c != nil && c.parent == id {
			c.parent = 0
		}
	}
	rn.children = nil
	rn.DeleteTextures()
	if rn.renderer != nil {
		rn.renderer.RemoveLayer(rn)
		rn.renderer = nil
	}
	if t.renderRoot == id {
		t.renderRoot = 0
	}
	delete(t.render, id)
}

// imageSize rounds a layer size up to whole pixels.
func imageSize(w, h float64) image.Point {
	return image.Pt(ceilInt(w), ceilInt(h))
}

func ceilInt(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return max(i, 0)
}
