// Package viewer shows a rendered scene in a desktop window. Arrow keys orbit
// the camera; closing the window returns control to the caller.
package viewer

import (
	"fmt"
	"image"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"voxmesh/pkg/visualization"
)

const (
	AppID   = "io.voxmesh.viewer"
	AppName = "voxmesh"

	// rotation per key press in radians
	step = math.Pi / 18

	maxPitch = math.Pi/2 - 0.05
)

// Renderer produces an image of the scene for a camera position.
type Renderer interface {
	Render(opts visualization.RenderOptions) image.Image
}

// Window is an interactive view of a Renderer.
type Window struct {
	window fyne.Window
	scene  Renderer
	opts   visualization.RenderOptions
	image  *canvas.Image
	status *widget.Label
}

// New creates the window on a, without showing it.
func New(a fyne.App, scene Renderer, opts visualization.RenderOptions) *Window {
	w := &Window{
		window: a.NewWindow(AppName),
		scene:  scene,
		opts:   opts,
		status: widget.NewLabel(""),
	}

	w.image = canvas.NewImageFromImage(nil)
	w.image.FillMode = canvas.ImageFillContain
	w.image.ScaleMode = canvas.ImageScaleSmooth
	w.image.SetMinSize(fyne.NewSize(float32(opts.Width)/2, float32(opts.Height)/2))

	w.window.SetContent(container.NewBorder(nil, w.status, nil, nil, w.image))
	w.window.Resize(fyne.NewSize(float32(opts.Width), float32(opts.Height)))
	w.window.Canvas().SetOnTypedKey(w.HandleKey)
	w.redraw()
	return w
}

// Camera returns the current camera.
func (w *Window) Camera() visualization.Camera {
	return w.opts.Camera
}

// Window returns the underlying fyne window.
func (w *Window) Window() fyne.Window {
	return w.window
}

// HandleKey orbits the camera on arrow keys and re-renders.
func (w *Window) HandleKey(ev *fyne.KeyEvent) {
	cam := &w.opts.Camera
	switch ev.Name {
	case fyne.KeyLeft:
		cam.Yaw -= step
	case fyne.KeyRight:
		cam.Yaw += step
	case fyne.KeyUp:
		cam.Pitch = math.Min(cam.Pitch+step, maxPitch)
	case fyne.KeyDown:
		cam.Pitch = math.Max(cam.Pitch-step, -maxPitch)
	default:
		return
	}
	w.redraw()
}

func (w *Window) redraw() {
	w.image.Image = w.scene.Render(w.opts)
	w.image.Refresh()
	w.status.SetText(fmt.Sprintf("yaw %.0f°  pitch %.0f°  (arrow keys rotate)",
		w.opts.Camera.Yaw*180/math.Pi, w.opts.Camera.Pitch*180/math.Pi))
}

// Show opens a window on a new application and blocks until it is closed.
func Show(scene Renderer, opts visualization.RenderOptions) {
	a := app.NewWithID(AppID)
	New(a, scene, opts).window.ShowAndRun()
}
