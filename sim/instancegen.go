package sim

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates in
// kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusKm
}

// city is one entry of the built-in node pool for random instances.
type city struct {
	name string
	lon  float64
	lat  float64
}

// cityPool covers the Benelux and Rhine corridor the simulation targets.
var cityPool = []city{
	{"Amsterdam", 4.9041, 52.3676},
	{"Brussels", 4.3572, 50.8477},
	{"Antwerp", 4.4150, 51.2199},
	{"Rotterdam", 4.4792, 51.9225},
	{"Utrecht", 5.1214, 52.0907},
	{"Eindhoven", 5.4697, 51.4416},
	{"Ghent", 3.7174, 51.0543},
	{"Liege", 5.5797, 50.6326},
	{"Duisburg", 6.7623, 51.4344},
	{"Cologne", 6.9603, 50.9375},
}

// GenSpec parameterizes random instance generation.
type GenSpec struct {
	NumNodes    int
	NumRequests int
	NumVehicles int
	// Tmax bounds the request time windows.
	Tmax int64
	// MaxAmount bounds request amounts (units).
	MaxAmount int
}

// GenerateInstance draws a random but reproducible instance: nodes sampled
// from the city pool with great-circle distances, a truck fleet spread over
// the nodes, and uniform random requests. All draws come from the provided
// RNG, so the same seed yields the same instance.
func GenerateInstance(spec GenSpec, rng *rand.Rand) (*Instance, error) {
	if spec.NumNodes < 2 || spec.NumNodes > len(cityPool) {
		return nil, fmt.Errorf("num nodes %d outside [2,%d]", spec.NumNodes, len(cityPool))
	}
	if spec.NumRequests < 1 || spec.NumVehicles < 1 || spec.Tmax < 2 {
		return nil, fmt.Errorf("instance spec needs at least one request, one vehicle, and Tmax >= 2")
	}
	if spec.MaxAmount <= 0 {
		spec.MaxAmount = 100
	}

	perm := rng.Perm(len(cityPool))[:spec.NumNodes]
	nodes := make([]Node, spec.NumNodes)
	for i, pick := range perm {
		c := cityPool[pick]
		nodes[i] = Node{
			ID:        i,
			Name:      c.name,
			Longitude: c.lon,
			Latitude:  c.lat,
			Access:    map[Mode]bool{ModeTruck: true, ModeTrain: true, ModeBarge: true},
		}
	}

	dist := make([][]float64, spec.NumNodes)
	for i := range dist {
		dist[i] = make([]float64, spec.NumNodes)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = haversineKm(nodes[i].Latitude, nodes[i].Longitude, nodes[j].Latitude, nodes[j].Longitude)
			}
		}
	}

	vehicles := make([]*Vehicle, spec.NumVehicles)
	for i := range vehicles {
		node := rng.Intn(spec.NumNodes)
		speed := 40 + rng.Float64()*20 // km per tick
		vehicles[i] = NewVehicle(i, ModeTruck, node, 10, speed, 100, 0.9, 0)
	}

	requests := make([]*Request, spec.NumRequests)
	for i := range requests {
		origin := rng.Intn(spec.NumNodes)
		destination := rng.Intn(spec.NumNodes - 1)
		if destination >= origin {
			destination++
		}
		a := 1 + rng.Int63n(spec.Tmax-1)
		b := 1 + rng.Int63n(spec.Tmax-1)
		if a > b {
			a, b = b, a
		}
		requests[i] = &Request{
			ID:          i,
			Origin:      origin,
			Destination: destination,
			Amount:      1 + rng.Intn(spec.MaxAmount),
			Window:      TimeWindow{Lower: a, Upper: b},
			ShipperID:   0,
			Distance:    dist[origin][destination],
			State:       RequestPending,
		}
	}

	return &Instance{
		Nodes:     nodes,
		Distances: dist,
		Requests:  requests,
		Vehicles:  vehicles,
	}, nil
}

// WriteCSV persists the instance tables into dir using the loader schemas.
func (inst *Instance) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating instance directory: %w", err)
	}

	writeRows := func(name string, header []string, rows [][]string) error {
		file, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		defer file.Close()
		w := csv.NewWriter(file)
		if header != nil {
			if err := w.Write(header); err != nil {
				return fmt.Errorf("writing %s header: %w", name, err)
			}
		}
		if err := w.WriteAll(rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		w.Flush()
		return w.Error()
	}

	boolField := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}

	nodeRows := make([][]string, len(inst.Nodes))
	for i, n := range inst.Nodes {
		nodeRows[i] = []string{
			strconv.Itoa(n.ID), n.Name,
			strconv.FormatFloat(n.Longitude, 'f', -1, 64),
			strconv.FormatFloat(n.Latitude, 'f', -1, 64),
			boolField(n.Accessible(ModeTruck)),
			boolField(n.Accessible(ModeTrain)),
			boolField(n.Accessible(ModeBarge)),
		}
	}
	if err := writeRows("nodes.csv", []string{"id", "name", "longitude", "latitude", "truck", "train", "barge"}, nodeRows); err != nil {
		return err
	}

	distRows := make([][]string, len(inst.Distances))
	for i, row := range inst.Distances {
		distRows[i] = make([]string, len(row))
		for j, d := range row {
			distRows[i][j] = strconv.FormatFloat(d, 'f', 3, 64)
		}
	}
	if err := writeRows("distances.csv", nil, distRows); err != nil {
		return err
	}

	requestRows := make([][]string, len(inst.Requests))
	for i, r := range inst.Requests {
		requestRows[i] = []string{
			strconv.Itoa(r.ID), strconv.Itoa(r.Origin), strconv.Itoa(r.Destination),
			strconv.Itoa(r.Amount),
			strconv.FormatInt(r.Window.Lower, 10), strconv.FormatInt(r.Window.Upper, 10),
			strconv.Itoa(r.ShipperID),
		}
	}
	if err := writeRows("requests.csv", []string{"id", "origin", "destination", "amount", "lower", "upper", "shipper"}, requestRows); err != nil {
		return err
	}

	vehicleRows := make([][]string, len(inst.Vehicles))
	for i, v := range inst.Vehicles {
		vehicleRows[i] = []string{
			strconv.Itoa(v.ID), string(v.Mode), strconv.Itoa(v.Location.From),
			strconv.Itoa(v.MaxContainers),
			strconv.FormatFloat(v.Speed, 'f', 3, 64),
			strconv.FormatFloat(v.UnitCost, 'f', 3, 64),
			strconv.FormatFloat(v.EmissionFactor, 'f', 3, 64),
			strconv.Itoa(v.CarrierID),
		}
	}
	return writeRows("vehicles.csv", []string{"id", "mode", "location", "max_containers", "speed", "unit_cost", "emission_factor", "carrier"}, vehicleRows)
}
