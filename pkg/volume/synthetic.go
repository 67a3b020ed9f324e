package volume

import "voxmesh/internal/models"

// DefaultSphereSize is the edge length of the volume generated when no input
// is given.
const DefaultSphereSize = 50

// Blob is a solid ball of voxels.
type Blob struct {
	// Center in voxel coordinates (x, y, z)
	Center [3]int
	Radius int
}

// Sphere returns a size^3 binary volume holding one ball of radius size/4
// centred at size/2.
func Sphere(size int) *models.Volume {
	c := size / 2
	return Blobs(size, size, size, Blob{Center: [3]int{c, c, c}, Radius: size / 4})
}

// Blobs returns a binary volume with every voxel inside at least one blob
// set to 1. A voxel is inside when its squared distance to the centre is at
// most the squared radius.
func Blobs(width, height, depth int, blobs ...Blob) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	for _, b := range blobs {
		r2 := b.Radius * b.Radius
		for z := max(0, b.Center[2]-b.Radius); z <= min(depth-1, b.Center[2]+b.Radius); z++ {
			for y := max(0, b.Center[1]-b.Radius); y <= min(height-1, b.Center[1]+b.Radius); y++ {
				for x := max(0, b.Center[0]-b.Radius); x <= min(width-1, b.Center[0]+b.Radius); x++ {
					dx, dy, dz := x-b.Center[0], y-b.Center[1], z-b.Center[2]
					if dx*dx+dy*dy+dz*dz <= r2 {
						vol.Set(x, y, z, 1)
					}
				}
			}
		}
	}
	return vol
}

// Box is an axis aligned block of voxels, Min inclusive and Max exclusive.
type Box struct {
	Min, Max [3]int
}

// Boxes returns a binary volume with every voxel inside at least one box set
// to 1.
func Boxes(width, height, depth int, boxes ...Box) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	for _, b := range boxes {
		for z := max(0, b.Min[2]); z < min(depth, b.Max[2]); z++ {
			for y := max(0, b.Min[1]); y < min(height, b.Max[1]); y++ {
				for x := max(0, b.Min[0]); x < min(width, b.Max[0]); x++ {
					vol.Set(x, y, z, 1)
				}
			}
		}
	}
	return vol
}
