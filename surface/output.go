package surface

import (
	"slices"

	wl "deedles.dev/kyo/client"
	"deedles.dev/ximage/geom"
	"golang.org/x/exp/maps"
)

// OutputID identifies an output by the name of its global.
type OutputID uint32

// Output is a display that surfaces can be shown on.
type Output struct {
	ID OutputID

	// Bounds is the output's area of the compositor's global space, in
	// pixels.
	Bounds geom.Rect[int]
	Scale  int

	// Refresh is in mHz.
	Refresh int

	Make        string
	Model       string
	Name        string
	Description string
}

func outputFromInfo(info wl.OutputInfo) Output {
	return Output{
		ID:          OutputID(info.Name),
		Bounds:      info.Bounds,
		Scale:       max(info.Scale, 1),
		Refresh:     info.Refresh,
		Make:        info.Make,
		Model:       info.Model,
		Name:        info.Connector,
		Description: info.Description,
	}
}

// Outputs returns every known output.
func (r *Registry) Outputs() map[OutputID]Output {
	return maps.Clone(r.outputs)
}

func (r *Registry) Output(id OutputID) (Output, bool) {
	out, ok := r.outputs[id]
	return out, ok
}

// UpdateOutput records the current description of an output and
// returns the surfaces on it whose effective scale changed as a
// result.
func (r *Registry) UpdateOutput(info wl.OutputInfo) (Output, []ID) {
	out := outputFromInfo(info)
	return out, r.rescaled(func() { r.outputs[out.ID] = out })
}

// RemoveOutput forgets an output and returns the surfaces whose
// effective scale changed as a result.
func (r *Registry) RemoveOutput(id OutputID) []ID {
	return r.rescaled(func() {
		delete(r.outputs, id)
		for _, e := range r.surfaces {
			e.outputs = slices.DeleteFunc(e.outputs, func(out OutputID) bool { return out == id })
			e.Output = e.primaryOutput()
		}
	})
}

// rescaled runs f and returns the surfaces whose effective scale is
// different afterwards.
func (r *Registry) rescaled(f func()) []ID {
	before := make(map[ID]int, len(r.surfaces))
	for id, e := range r.surfaces {
		before[id] = r.effectiveScale(e)
	}

	f()

	var changed []ID
	for _, id := range r.IDs() {
		if r.effectiveScale(r.surfaces[id]) != before[id] {
			changed = append(changed, id)
		}
	}
	return changed
}

// EnterOutput records that the surface is shown on an output. It
// reports whether the surface's effective scale changed.
func (r *Registry) EnterOutput(id ID, out OutputID) (bool, error) {
	e, err := r.live(id)
	if err != nil {
		return false, err
	}

	before := r.effectiveScale(e)
	if !slices.Contains(e.outputs, out) {
		e.outputs = append(e.outputs, out)
	}
	e.Output = e.primaryOutput()
	return r.effectiveScale(e) != before, nil
}

// LeaveOutput records that the surface is no longer shown on an
// output. It reports whether the surface's effective scale changed.
func (r *Registry) LeaveOutput(id ID, out OutputID) (bool, error) {
	e, err := r.live(id)
	if err != nil {
		return false, err
	}

	before := r.effectiveScale(e)
	e.outputs = slices.DeleteFunc(e.outputs, func(v OutputID) bool { return v == out })
	e.Output = e.primaryOutput()
	return r.effectiveScale(e) != before, nil
}

// SetPreferredScale records the scale that the compositor asked the
// surface to use. It takes precedence over the scales of the outputs
// that the surface is on. It reports whether the surface's effective
// scale changed.
func (r *Registry) SetPreferredScale(id ID, scale int) (bool, error) {
	e, err := r.live(id)
	if err != nil {
		return false, err
	}

	before := r.effectiveScale(e)
	e.preferredScale = scale
	return r.effectiveScale(e) != before, nil
}

// EffectiveScale returns the scale that the surface should render at:
// the preferred scale if the compositor sent one, otherwise the largest
// scale among the outputs it is on, otherwise 1.
func (r *Registry) EffectiveScale(id ID) (int, error) {
	e, err := r.live(id)
	if err != nil {
		return 0, err
	}
	return r.effectiveScale(e), nil
}

func (r *Registry) effectiveScale(e *entry) int {
	if e.preferredScale > 0 {
		return e.preferredScale
	}

	scale := 1
	for _, id := range e.outputs {
		if out, ok := r.outputs[id]; ok {
			scale = max(scale, out.Scale)
		}
	}
	return scale
}
