package sim

import "fmt"

// Node is a point in the freight network. Access lists the vehicle modes
// that can call at it. Immutable after network construction.
type Node struct {
	ID        int
	Name      string
	Longitude float64
	Latitude  float64
	Access    map[Mode]bool
}

// Accessible reports whether vehicles of mode m can call at the node.
// A node with a nil Access map accepts every mode.
func (n Node) Accessible(m Mode) bool {
	if n.Access == nil {
		return true
	}
	return n.Access[m]
}

// Link is one geometric segment of an origin-destination path, identified by
// its endpoint coordinates. Immutable.
type Link struct {
	ID             int
	StartLongitude float64
	StartLatitude  float64
	EndLongitude   float64
	EndLatitude    float64
}

type coordKey [4]float64

// Network is the static node-link graph plus the dense distance matrix.
// It resolves origin-destination pairs to paths and distances and is
// read-only during a simulation run.
type Network struct {
	nodes     []Node
	links     []Link
	paths     map[[2]int][]int
	linkIndex map[coordKey]int
	dist      [][]float64
}

// NewNetwork builds a network from a node table and a distance matrix.
// The matrix must be square with one row per node; symmetry is not assumed.
func NewNetwork(nodes []Node, dist [][]float64) (*Network, error) {
	if len(dist) != len(nodes) {
		return nil, fmt.Errorf("distance matrix has %d rows for %d nodes", len(dist), len(nodes))
	}
	for i, row := range dist {
		if len(row) != len(nodes) {
			return nil, fmt.Errorf("distance matrix row %d has %d columns for %d nodes", i, len(row), len(nodes))
		}
	}
	return &Network{
		nodes:     nodes,
		paths:     make(map[[2]int][]int),
		linkIndex: make(map[coordKey]int),
		dist:      dist,
	}, nil
}

// NumNodes returns the node count.
func (net *Network) NumNodes() int { return len(net.nodes) }

// Node returns the node with the given id.
func (net *Network) Node(id int) (Node, error) {
	if id < 0 || id >= len(net.nodes) {
		return Node{}, fmt.Errorf("node %d: %w", id, ErrUnknownEntity)
	}
	return net.nodes[id], nil
}

// Nodes returns the node table.
func (net *Network) Nodes() []Node { return net.nodes }

// Links returns the link table.
func (net *Network) Links() []Link { return net.links }

// Link returns the link with the given id.
func (net *Network) Link(id int) (Link, error) {
	if id < 0 || id >= len(net.links) {
		return Link{}, fmt.Errorf("link %d: %w", id, ErrUnknownEntity)
	}
	return net.links[id], nil
}

// Distance returns the origin-to-destination distance.
func (net *Network) Distance(origin, destination int) (float64, error) {
	if origin < 0 || origin >= len(net.nodes) {
		return 0, fmt.Errorf("origin node %d: %w", origin, ErrUnknownEntity)
	}
	if destination < 0 || destination >= len(net.nodes) {
		return 0, fmt.Errorf("destination node %d: %w", destination, ErrUnknownEntity)
	}
	return net.dist[origin][destination], nil
}

// AddPath registers the route geometry for an origin-destination pair as a
// sequence of coordinate waypoints. Segments shared between routes resolve
// to the same link id.
func (net *Network) AddPath(origin, destination int, route [][2]float64) error {
	if origin < 0 || origin >= len(net.nodes) {
		return fmt.Errorf("path origin node %d: %w", origin, ErrUnknownEntity)
	}
	if destination < 0 || destination >= len(net.nodes) {
		return fmt.Errorf("path destination node %d: %w", destination, ErrUnknownEntity)
	}
	linkIDs := make([]int, 0, len(route))
	for i := 0; i+1 < len(route); i++ {
		key := coordKey{route[i][0], route[i][1], route[i+1][0], route[i+1][1]}
		id, ok := net.linkIndex[key]
		if !ok {
			id = len(net.links)
			net.links = append(net.links, Link{
				ID:             id,
				StartLongitude: route[i][0],
				StartLatitude:  route[i][1],
				EndLongitude:   route[i+1][0],
				EndLatitude:    route[i+1][1],
			})
			net.linkIndex[key] = id
		}
		linkIDs = append(linkIDs, id)
	}
	net.paths[[2]int{origin, destination}] = linkIDs
	return nil
}

// PathLinks returns the link ids along the origin-destination path, or nil
// when no route geometry was registered for the pair.
func (net *Network) PathLinks(origin, destination int) []int {
	return net.paths[[2]int{origin, destination}]
}
