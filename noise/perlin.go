// Package noise provides the deterministic gradient noise that drives the
// force field. The lattice is fixed at 256 cells per axis, so every function
// here is periodic with period 256 along x, y and z.
package noise

import "math"

// perm is the reference permutation of 0..255 used to hash lattice corners.
var perm = [256]int{
	151, 160, 137, 91, 90, 15, 131, 13, 201, 95, 96, 53, 194, 233, 7, 225,
	140, 36, 103, 30, 69, 142, 8, 99, 37, 240, 21, 10, 23, 190, 6, 148,
	247, 120, 234, 75, 0, 26, 197, 62, 94, 252, 219, 203, 117, 35, 11, 32,
	57, 177, 33, 88, 237, 149, 56, 87, 174, 20, 125, 136, 171, 168, 68, 175,
	74, 165, 71, 134, 139, 48, 27, 166, 77, 146, 158, 231, 83, 111, 229, 122,
	60, 211, 133, 230, 220, 105, 92, 41, 55, 46, 245, 40, 244, 102, 143, 54,
	65, 25, 63, 161, 1, 216, 80, 73, 209, 76, 132, 187, 208, 89, 18, 169,
	200, 196, 135, 130, 116, 188, 159, 86, 164, 100, 109, 198, 173, 186, 3, 64,
	52, 217, 226, 250, 124, 123, 5, 202, 38, 147, 118, 126, 255, 82, 85, 212,
	207, 206, 59, 227, 47, 16, 58, 17, 182, 189, 28, 42, 223, 183, 170, 213,
	119, 248, 152, 2, 44, 154, 163, 70, 221, 153, 101, 155, 167, 43, 172, 9,
	129, 22, 39, 253, 19, 98, 108, 110, 79, 113, 224, 232, 178, 185, 112, 104,
	218, 246, 97, 228, 251, 34, 242, 193, 238, 210, 144, 12, 191, 179, 162, 241,
	81, 51, 145, 235, 249, 14, 239, 107, 49, 192, 214, 31, 181, 199, 106, 157,
	184, 84, 204, 176, 115, 121, 50, 45, 127, 4, 150, 254, 138, 236, 205, 93,
	222, 114, 67, 29, 24, 72, 243, 141, 128, 195, 78, 66, 215, 61, 156, 180,
}

// grad3 holds the twelve cube edge midpoints.
var grad3 = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Evaluate returns improved Perlin noise at (x, y, z).
// The result is empirically within [-1, 1]; it is not clamped.
func Evaluate(x, y, z float64) float64 {
	// Find unit cube, flooring toward -Inf so negative inputs wrap correctly
	fx := math.Floor(x)
	fy := math.Floor(y)
	fz := math.Floor(z)

	X := int(fx) & 255
	Y := int(fy) & 255
	Z := int(fz) & 255
	X1 := (X + 1) & 255
	Y1 := (Y + 1) & 255
	Z1 := (Z + 1) & 255

	// Relative position in cube
	x -= fx
	y -= fy
	z -= fz

	u := fade(x)
	v := fade(y)
	w := fade(z)

	// Blend the 8 corner contributions
	return lerp(w,
		lerp(v,
			lerp(u, grad(hash(X, Y, Z), x, y, z),
				grad(hash(X1, Y, Z), x-1, y, z)),
			lerp(u, grad(hash(X, Y1, Z), x, y-1, z),
				grad(hash(X1, Y1, Z), x-1, y-1, z))),
		lerp(v,
			lerp(u, grad(hash(X, Y, Z1), x, y, z-1),
				grad(hash(X1, Y, Z1), x-1, y, z-1)),
			lerp(u, grad(hash(X, Y1, Z1), x, y-1, z-1),
				grad(hash(X1, Y1, Z1), x-1, y-1, z-1))))
}

// Evaluate2D returns noise on the z = 0 plane.
func Evaluate2D(x, y float64) float64 {
	return Evaluate(x, y, 0)
}

// hash maps wrapped lattice coordinates to a permutation value.
// It only depends on the corner itself, so neighbouring cells agree on
// shared corners.
func hash(i, j, k int) int {
	return perm[(perm[(perm[i]+j)&255]+k)&255]
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(h int, x, y, z float64) float64 {
	g := &grad3[h%len(grad3)]
	return g[0]*x + g[1]*y + g[2]*z
}
