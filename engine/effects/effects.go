// Package effects implements what a trigger element does to the world when
// it starts, and how the element learns that its action is over. Each
// kind of named object has one action.
package effects

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/counter"
	"github.com/nathoo/qdcore/engine/grid"
	"github.com/nathoo/qdcore/engine/named"
	"github.com/nathoo/qdcore/engine/object"
	"github.com/nathoo/qdcore/engine/scene"
	"github.com/nathoo/qdcore/logger"
)

// Host is the part of the dispatcher trigger actions act on.
type Host interface {
	ActiveScene() *scene.Scene
	// QueueScene selects s as the next scene. The switch happens between
	// ticks.
	QueueScene(s *scene.Scene)
	// DeactivateTriggers stops every trigger element governing n or an
	// object owned by n.
	DeactivateTriggers(n named.Named)
	SetMusicTrack(t *scene.MusicTrack)
}

// Start runs the action of n and reports whether it was accepted. A nil or
// unknown object accepts without doing anything.
func Start(n named.Named, h Host) bool {
	if n == nil {
		return true
	}

	switch v := n.(type) {
	case *scene.Scene:
		if v.HasFlag(scene.FlagResetTriggersOnLoad) {
			h.DeactivateTriggers(v)
		}
		if v != h.ActiveScene() {
			h.QueueScene(v)
		}

	case *object.State:
		o := v.Object()
		if o == nil {
			return false
		}
		// A state waiting behind a walk is already started.
		if !o.IsStateWaiting(v) {
			o.QueueState(v)
		}

	case *counter.Counter:
		v.AddValue(v.TriggerDelta)

	case *grid.Zone:
		v.SetState(true)

	case *scene.MusicTrack:
		h.SetMusicTrack(v)
	}

	logger.Log.WithFields(logrus.Fields{
		"object": named.Path(n),
		"type":   n.Type().String(),
	}).Debug("trigger action started")
	return true
}

// Finished reports whether the action started on n has completed.
func Finished(n named.Named, h Host) bool {
	switch v := n.(type) {
	case *scene.Scene:
		return h.ActiveScene() == v

	case *object.State:
		o := v.Object()
		if o == nil {
			return true
		}
		if o.IsStateWaiting(v) {
			return false
		}
		// Replaced by another state counts as finished.
		if !o.IsStateActive(v) {
			return true
		}
		return v.Finished()
	}
	return true
}
