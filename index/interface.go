package index

// Registered locator names
const (
	TypeKDTree = "kdtree"
	TypeVPTree = "vptree"
	TypeBucket = "bucket"
	TypeStatic = "static"
	TypeFlat   = "flat"
)

// maxPoints bounds dataset size so point ids fit the int32 bucket lists
const maxPoints = 1<<31 - 1

// ctxCheckInterval is how many points a build loop processes between
// context checks
const ctxCheckInterval = 1 << 16
