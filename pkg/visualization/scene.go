package visualization

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"

	"voxmesh/internal/models"
)

// Camera orbits the scene centre. Yaw turns around the z axis and Pitch
// lifts the eye above the xy plane, both in radians.
type Camera struct {
	Yaw   float64
	Pitch float64
}

// DefaultCamera looks at the scene from the (1, 1, 1) diagonal.
var DefaultCamera = Camera{Yaw: math.Pi / 4, Pitch: math.Asin(1 / math.Sqrt(3))}

// RenderOptions controls offscreen rendering.
type RenderOptions struct {
	Width, Height int

	// Supersample renders at a multiple of the size and downscales
	Supersample int

	Camera Camera

	Background color.Color
}

const (
	eyeDistance = 3 * 1.7320508075688772 // |(3, 3, 3)|
	fovy        = 30
	near        = 1
	far         = 10
)

// Scene holds the refined meshes of one run keyed by region index.
type Scene struct {
	meshes map[int]*models.RefinedMesh
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{meshes: map[int]*models.RefinedMesh{}}
}

// Add stores mesh under its region index, replacing any earlier mesh with
// the same index. Empty meshes are ignored.
func (s *Scene) Add(mesh *models.RefinedMesh) {
	if mesh.Empty() {
		return
	}
	s.meshes[mesh.Index] = mesh
}

// Len returns the number of meshes in the scene.
func (s *Scene) Len() int {
	return len(s.meshes)
}

// Indices returns the region indices in ascending order.
func (s *Scene) Indices() []int {
	idx := make([]int, 0, len(s.meshes))
	for i := range s.meshes {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Render draws every mesh in its own color with Phong shading. All meshes
// are fitted together into a bi-unit cube so their relative placement is
// kept.
func (s *Scene) Render(opts RenderOptions) image.Image {
	ss := max(opts.Supersample, 1)
	bg := opts.Background
	if bg == nil {
		bg = color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	}

	context := fauxgl.NewContext(opts.Width*ss, opts.Height*ss)
	context.ClearColorBufferWith(fauxgl.MakeColor(bg))

	cam := opts.Camera
	eye := fauxgl.V(
		eyeDistance*math.Cos(cam.Pitch)*math.Cos(cam.Yaw),
		eyeDistance*math.Cos(cam.Pitch)*math.Sin(cam.Yaw),
		eyeDistance*math.Sin(cam.Pitch),
	)
	center := fauxgl.V(0, 0, 0)
	up := fauxgl.V(0, 0, 1)
	light := fauxgl.V(-0.75, 1, 0.25).Normalize()
	aspect := float64(opts.Width) / float64(opts.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)

	offset, scale := s.fit()
	for _, i := range s.Indices() {
		m := s.meshes[i]
		shader := fauxgl.NewPhongShader(matrix, light, eye)
		shader.ObjectColor = fauxgl.MakeColor(m.Color)
		context.Shader = shader
		context.DrawMesh(toFauxgl(m, offset, scale))
	}

	img := context.Image()
	if ss > 1 {
		img = resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear)
	}
	return img
}

// SavePNG renders the scene and writes it to path.
func (s *Scene) SavePNG(path string, opts RenderOptions) error {
	return fauxgl.SavePNG(path, s.Render(opts))
}

// fit returns the translation and scale that map the union of all mesh
// bounds onto [-1, 1] along the longest axis.
func (s *Scene) fit() (r3.Vec, float64) {
	first := true
	var box r3.Box
	for _, m := range s.meshes {
		b := m.Bounds()
		if first {
			box, first = b, false
			continue
		}
		box.Min = r3.Vec{X: min(box.Min.X, b.Min.X), Y: min(box.Min.Y, b.Min.Y), Z: min(box.Min.Z, b.Min.Z)}
		box.Max = r3.Vec{X: max(box.Max.X, b.Max.X), Y: max(box.Max.Y, b.Max.Y), Z: max(box.Max.Z, b.Max.Z)}
	}
	size := r3.Sub(box.Max, box.Min)
	extent := max(size.X, size.Y, size.Z)
	if extent == 0 {
		extent = 1
	}
	return r3.Scale(0.5, r3.Add(box.Min, box.Max)), 2 / extent
}

func toFauxgl(m *models.RefinedMesh, offset r3.Vec, scale float64) *fauxgl.Mesh {
	pos := func(i int) fauxgl.Vector {
		p := r3.Scale(scale, r3.Sub(m.Vertices[i], offset))
		return fauxgl.V(p.X, p.Y, p.Z)
	}
	withNormals := len(m.VertexNormals) == len(m.Vertices)
	tris := make([]*fauxgl.Triangle, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		var v [3]fauxgl.Vertex
		for k, idx := range t {
			v[k].Position = pos(idx)
			if withNormals {
				n := m.VertexNormals[idx]
				v[k].Normal = fauxgl.V(n.X, n.Y, n.Z)
			}
		}
		tri := fauxgl.NewTriangle(v[0], v[1], v[2])
		tri.FixNormals()
		tris = append(tris, tri)
	}
	return fauxgl.NewTriangleMesh(tris)
}
