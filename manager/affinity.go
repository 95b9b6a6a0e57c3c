package manager

// AffinityKind says what an Affinity names.
type AffinityKind uint8

const (
	AffinityNone AffinityKind = iota
	AffinityNode
	AffinityCluster
)

// Affinity is a routing hint for client requests. A strict affinity names the
// target that must receive the request; a weak one is only a preference.
type Affinity struct {
	Kind AffinityKind
	Name string
}

func NoAffinity() Affinity                { return Affinity{} }
func NodeAffinity(node string) Affinity   { return Affinity{Kind: AffinityNode, Name: node} }
func ClusterAffinity(name string) Affinity { return Affinity{Kind: AffinityCluster, Name: name} }

func (a Affinity) IsNone() bool { return a.Kind == AffinityNone }

func (a Affinity) String() string {
	switch a.Kind {
	case AffinityNode:
		return "node:" + a.Name
	case AffinityCluster:
		return "cluster:" + a.Name
	default:
		return "none"
	}
}
