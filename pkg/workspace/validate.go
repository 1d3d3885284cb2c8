package workspace

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/scene"
)

// Issue is one consistency finding.
type Issue struct {
	Code    string
	Message string
	Key     scene.Key
}

func (e Issue) Error() string {
	if e.Key != (scene.Key{}) {
		return fmt.Sprintf("%s: %s (item: %s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Check verifies the invariants tying the catalogue, the geometry store and
// the viewer binding together. A healthy workspace returns nil.
func (w *Workspace) Check() []Issue {
	var issues []Issue
	issues = append(issues, w.checkStructure()...)
	issues = append(issues, w.checkBinding()...)
	issues = append(issues, w.checkGeometry()...)
	return issues
}

func (w *Workspace) checkStructure() []Issue {
	var issues []Issue
	if len(w.order) != len(w.datasets) {
		issues = append(issues, Issue{
			Code:    "ORDER_MISMATCH",
			Message: fmt.Sprintf("%d datasets ordered, %d stored", len(w.order), len(w.datasets)),
		})
	}
	for name, d := range w.datasets {
		if d.Len() == 0 {
			issues = append(issues, Issue{
				Code:    "EMPTY_DATASET",
				Message: fmt.Sprintf("dataset %q has no items", name),
			})
		}
		if len(d.children) != len(d.items) {
			issues = append(issues, Issue{
				Code:    "CHILD_MISMATCH",
				Message: fmt.Sprintf("dataset %q lists %d children for %d items", name, len(d.children), len(d.items)),
			})
		}
		for _, c := range d.children {
			if it, ok := d.items[c]; !ok || it.key != (scene.Key{Dataset: name, Item: c}) {
				issues = append(issues, Issue{
					Code:    "ORPHAN_CHILD",
					Message: "child name does not resolve to its item",
					Key:     scene.Key{Dataset: name, Item: c},
				})
			}
		}
	}
	return issues
}

func (w *Workspace) checkBinding() []Issue {
	var issues []Issue
	for _, key := range w.binding.Keys() {
		it := w.Get(key)
		switch {
		case it == nil:
			issues = append(issues, Issue{Code: "DANGLING_HANDLE", Message: "bound item does not exist", Key: key})
		case !it.visible:
			issues = append(issues, Issue{Code: "HIDDEN_BOUND", Message: "hidden item is still bound", Key: key})
		}
	}
	for _, it := range w.Items() {
		if it.visible && !w.binding.Bound(it.key) {
			issues = append(issues, Issue{Code: "VISIBLE_UNBOUND", Message: "visible item has no handle", Key: it.key})
		}
	}
	return issues
}

func (w *Workspace) checkGeometry() []Issue {
	var issues []Issue
	for _, it := range w.Items() {
		if err := it.geom.Validate(); err != nil {
			issues = append(issues, Issue{Code: "INVALID_GEOMETRY", Message: err.Error(), Key: it.key})
		}
		if it.cached && len(it.original) != it.geom.ColorTarget() {
			issues = append(issues, Issue{
				Code:    "STALE_COLOR_CACHE",
				Message: fmt.Sprintf("cache holds %d colors for %d elements", len(it.original), it.geom.ColorTarget()),
				Key:     it.key,
			})
		}
	}
	return issues
}
