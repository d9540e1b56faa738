package cluster

// Cluster identifies one of the two physically separate facility areas.
type Cluster string

const (
	East Cluster = "east"
	West Cluster = "west"
)

// Boundary is the first card number belonging to the west cluster.
const Boundary = 1000

// OfCard derives the cluster a card grants access to from its number.
func OfCard(cardNo int) Cluster {
	if cardNo < Boundary {
		return East
	}
	return West
}

// All lists both clusters in a stable order.
func All() []Cluster {
	return []Cluster{East, West}
}
