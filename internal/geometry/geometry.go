/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry relates integer model coordinates (glyph offsets from the
// canvas center) to continuous view coordinates under pan and zoom.
// All functions are pure; Camera is a plain value.
package geometry

import "math"

// Pt is a point or offset in view space.
type Pt struct{ X, Y float64 }

// Size is a width/height pair in view space.
type Size struct{ W, H float64 }

func (p Pt) Add(o Pt) Pt            { return Pt{p.X + o.X, p.Y + o.Y} }
func (p Pt) Sub(o Pt) Pt            { return Pt{p.X - o.X, p.Y - o.Y} }
func (p Pt) Scale(k float64) Pt     { return Pt{p.X * k, p.Y * k} }
func (s Size) Center() Pt           { return Pt{s.W / 2, s.H / 2} }
func (s Size) Positive() bool       { return s.W > 0 && s.H > 0 }
func (s Size) Scale(k float64) Size { return Size{s.W * k, s.H * k} }

// snapEpsilon absorbs float error left over from the view transform before truncation.
const snapEpsilon = 1e-9

// Viewport is the transform between model and view space.
// Center is the view-space position of the model origin before panning,
// Pan is the view-space pan offset and Zoom the scale factor (> 0).
type Viewport struct {
	Center Pt
	Pan    Pt
	Zoom   float64
}

// origin is the view-space position of model (0,0). Both directions use the
// same sum so that ToModel(ToView(x,y)) cancels it exactly.
func (v Viewport) origin() Pt { return v.Center.Add(v.Pan) }

// ToView maps model coordinates to view space: C + P + Z*(x, y).
func (v Viewport) ToView(x, y int) Pt {
	o := v.origin()
	return Pt{X: o.X + v.Zoom*float64(x), Y: o.Y + v.Zoom*float64(y)}
}

// ToModel maps a view-space point to model coordinates, truncating toward zero.
// Zoom must be positive; callers clamp with ClampZoom first.
func (v Viewport) ToModel(p Pt) (int, int) {
	o := v.origin()
	return truncate((p.X - o.X) / v.Zoom), truncate((p.Y - o.Y) / v.Zoom)
}

// ModelDelta converts a view-space drag translation into a model-space offset.
func (v Viewport) ModelDelta(d Pt) (int, int) {
	return truncate(d.X / v.Zoom), truncate(d.Y / v.Zoom)
}

// ViewSize is the rendered size of a glyph with the given model size.
func (v Viewport) ViewSize(size int) float64 { return float64(size) * v.Zoom }

// ModelSize converts a view-space font size (e.g. the palette's default) to
// model units at the current zoom, rounding half away from zero.
func (v Viewport) ModelSize(viewSize float64) int {
	return int(math.Round(viewSize / v.Zoom))
}

func truncate(f float64) int {
	if r := math.Round(f); math.Abs(f-r) < snapEpsilon*math.Max(1, math.Abs(r)) {
		return int(r)
	}
	return int(math.Trunc(f))
}

// Zoom limits. Zoom is never allowed to reach zero.
const (
	MinZoom = 0.01
	MaxZoom = 100.0
)

// ClampZoom keeps z inside [MinZoom, MaxZoom]; NaN maps to 1.
func ClampZoom(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return 1
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

// FitZoom returns the largest zoom that fits an image of size img inside view.
// ok is false when either size is degenerate.
func FitZoom(img, view Size) (zoom float64, ok bool) {
	if !img.Positive() || !view.Positive() {
		return 0, false
	}
	return math.Min(view.W/img.W, view.H/img.H), true
}

// Camera composes a settled pan/zoom with an in-progress gesture.
// Pan values are stored in model-scale units and multiplied by the zoom
// when producing a Viewport, so panning survives zoom changes.
type Camera struct {
	SteadyPan   Size
	GesturePan  Size
	SteadyZoom  float64
	GestureZoom float64
}

// NewCamera returns a camera at zoom 1 with no pan.
func NewCamera() Camera { return Camera{SteadyZoom: 1, GestureZoom: 1} }

// Zoom is the effective, clamped zoom.
func (c Camera) Zoom() float64 {
	sz, gz := c.SteadyZoom, c.GestureZoom
	if sz == 0 {
		sz = 1
	}
	if gz == 0 {
		gz = 1
	}
	return ClampZoom(sz * gz)
}

// PanOffset is (steady + gesture) * zoom in view space.
func (c Camera) PanOffset() Pt {
	z := c.Zoom()
	return Pt{X: (c.SteadyPan.W + c.GesturePan.W) * z, Y: (c.SteadyPan.H + c.GesturePan.H) * z}
}

// Viewport builds the transform for a view of the given size.
func (c Camera) Viewport(view Size) Viewport {
	return Viewport{Center: view.Center(), Pan: c.PanOffset(), Zoom: c.Zoom()}
}

// UpdatePan records an in-progress drag translation (view space).
func (c Camera) UpdatePan(translation Size) Camera {
	c.GesturePan = translation.Scale(1 / c.Zoom())
	return c
}

// EndPan folds a finished drag into the steady pan.
func (c Camera) EndPan(translation Size) Camera {
	t := translation.Scale(1 / c.Zoom())
	c.SteadyPan = Size{W: c.SteadyPan.W + t.W, H: c.SteadyPan.H + t.H}
	c.GesturePan = Size{}
	return c
}

// UpdateZoom records an in-progress pinch scale.
func (c Camera) UpdateZoom(scale float64) Camera {
	c.GestureZoom = scale
	return c
}

// EndZoom folds a finished pinch into the steady zoom.
func (c Camera) EndZoom(scale float64) Camera {
	sz := c.SteadyZoom
	if sz == 0 {
		sz = 1
	}
	c.SteadyZoom = ClampZoom(sz * scale)
	c.GestureZoom = 1
	return c
}

// ZoomToFit sets the steady zoom so the image fills the view. The camera is
// returned unchanged when sizes are degenerate.
func (c Camera) ZoomToFit(img, view Size) Camera {
	if z, ok := FitZoom(img, view); ok {
		c.SteadyZoom = ClampZoom(z)
		c.GestureZoom = 1
	}
	return c
}
