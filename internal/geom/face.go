package geom

// Face identifies one of the six axis-aligned faces of a cube.
type Face uint8

const (
	FaceNX Face = iota
	FaceNY
	FaceNZ
	FacePX
	FacePY
	FacePZ
)

// AllFaces lists every face, negative axes first.
var AllFaces = [6]Face{FaceNX, FaceNY, FaceNZ, FacePX, FacePY, FacePZ}

var faceNormals = [6]Vec3i{
	{-1, 0, 0},
	{0, -1, 0},
	{0, 0, -1},
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

func (f Face) Normal() Vec3i { return faceNormals[f] }

func (f Face) Opposite() Face { return (f + 3) % 6 }

// Axis is the axis number the face normal is parallel to (X=0, Y=1, Z=2).
func (f Face) Axis() int { return int(f) % 3 }

func (f Face) String() string {
	switch f {
	case FaceNX:
		return "-X"
	case FaceNY:
		return "-Y"
	case FaceNZ:
		return "-Z"
	case FacePX:
		return "+X"
	case FacePY:
		return "+Y"
	case FacePZ:
		return "+Z"
	}
	return "?"
}
