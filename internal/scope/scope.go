package scope

// Ownership says whether a cached slot belongs to the frame that holds it.
type Ownership int

const (
	Borrowed Ownership = iota
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	default:
		return "unknown"
	}
}

// Source records which resolution step produced a value.
type Source int

const (
	FromCache Source = iota
	FromExplicit
	FromFactory
	FromDefault
)

func (s Source) String() string {
	switch s {
	case FromCache:
		return "cache"
	case FromExplicit:
		return "explicit"
	case FromFactory:
		return "factory"
	case FromDefault:
		return "default"
	default:
		return "unknown"
	}
}
