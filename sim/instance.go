package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSV instance loaders. The schemas are binding even though the files are
// external inputs:
//
//	nodes:     id,name,longitude,latitude,truck,train,barge
//	distances: headerless node-by-node matrix, one row per node
//	requests:  id,origin,destination,amount,lower,upper,shipper
//	vehicles:  id,mode,location,max_containers,speed,unit_cost,emission_factor,carrier
//	services:  origin,destination,departure,arrival,cost,capacity,vehicle

func readTable(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil { // header row
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s at row %d: %w", path, len(rows), err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func fieldInt(record []string, idx int, name string, row int) (int, error) {
	v, err := strconv.Atoi(record[idx])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q at row %d: %w", name, record[idx], row, err)
	}
	return v, nil
}

func fieldInt64(record []string, idx int, name string, row int) (int64, error) {
	v, err := strconv.ParseInt(record[idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q at row %d: %w", name, record[idx], row, err)
	}
	return v, nil
}

func fieldFloat(record []string, idx int, name string, row int) (float64, error) {
	v, err := strconv.ParseFloat(record[idx], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q at row %d: %w", name, record[idx], row, err)
	}
	return v, nil
}

func fieldBool(record []string, idx int) bool {
	return record[idx] == "1" || record[idx] == "true"
}

// LoadNodes reads the node table.
func LoadNodes(path string) ([]Node, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(rows))
	for i, record := range rows {
		if len(record) < 7 {
			return nil, fmt.Errorf("node row %d has %d fields, want 7", i, len(record))
		}
		id, err := fieldInt(record, 0, "node id", i)
		if err != nil {
			return nil, err
		}
		lon, err := fieldFloat(record, 2, "longitude", i)
		if err != nil {
			return nil, err
		}
		lat, err := fieldFloat(record, 3, "latitude", i)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{
			ID:        id,
			Name:      record[1],
			Longitude: lon,
			Latitude:  lat,
			Access: map[Mode]bool{
				ModeTruck: fieldBool(record, 4),
				ModeTrain: fieldBool(record, 5),
				ModeBarge: fieldBool(record, 6),
			},
		})
	}
	return nodes, nil
}

// LoadDistanceMatrix reads the headerless node-by-node distance matrix.
func LoadDistanceMatrix(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var matrix [][]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s at row %d: %w", path, len(matrix), err)
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			row[j], err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid distance %q at (%d,%d): %w", cell, len(matrix), j, err)
			}
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}

// LoadRequests reads the request table, resolving each request's distance
// from the matrix.
func LoadRequests(path string, dist [][]float64) ([]*Request, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	requests := make([]*Request, 0, len(rows))
	for i, record := range rows {
		if len(record) < 7 {
			return nil, fmt.Errorf("request row %d has %d fields, want 7", i, len(record))
		}
		id, err := fieldInt(record, 0, "request id", i)
		if err != nil {
			return nil, err
		}
		origin, err := fieldInt(record, 1, "origin", i)
		if err != nil {
			return nil, err
		}
		destination, err := fieldInt(record, 2, "destination", i)
		if err != nil {
			return nil, err
		}
		amount, err := fieldInt(record, 3, "amount", i)
		if err != nil {
			return nil, err
		}
		lower, err := fieldInt64(record, 4, "window lower bound", i)
		if err != nil {
			return nil, err
		}
		upper, err := fieldInt64(record, 5, "window upper bound", i)
		if err != nil {
			return nil, err
		}
		shipper, err := fieldInt(record, 6, "shipper id", i)
		if err != nil {
			return nil, err
		}
		if origin < 0 || origin >= len(dist) || destination < 0 || destination >= len(dist) {
			return nil, fmt.Errorf("request %d references nodes (%d,%d) outside distance matrix: %w",
				id, origin, destination, ErrUnknownEntity)
		}
		requests = append(requests, &Request{
			ID:          id,
			Origin:      origin,
			Destination: destination,
			Amount:      amount,
			Window:      TimeWindow{Lower: lower, Upper: upper},
			ShipperID:   shipper,
			Distance:    dist[origin][destination],
			State:       RequestPending,
		})
	}
	return requests, nil
}

// LoadVehicles reads the vehicle table.
func LoadVehicles(path string) ([]*Vehicle, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	vehicles := make([]*Vehicle, 0, len(rows))
	for i, record := range rows {
		if len(record) < 8 {
			return nil, fmt.Errorf("vehicle row %d has %d fields, want 8", i, len(record))
		}
		id, err := fieldInt(record, 0, "vehicle id", i)
		if err != nil {
			return nil, err
		}
		mode, err := ParseMode(record[1])
		if err != nil {
			return nil, fmt.Errorf("vehicle row %d: %w", i, err)
		}
		node, err := fieldInt(record, 2, "location", i)
		if err != nil {
			return nil, err
		}
		maxContainers, err := fieldInt(record, 3, "max_containers", i)
		if err != nil {
			return nil, err
		}
		speed, err := fieldFloat(record, 4, "speed", i)
		if err != nil {
			return nil, err
		}
		unitCost, err := fieldFloat(record, 5, "unit_cost", i)
		if err != nil {
			return nil, err
		}
		emission, err := fieldFloat(record, 6, "emission_factor", i)
		if err != nil {
			return nil, err
		}
		carrier, err := fieldInt(record, 7, "carrier id", i)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, NewVehicle(id, mode, node, maxContainers, speed, unitCost, emission, carrier))
	}
	return vehicles, nil
}

// LoadServices reads the fixed-route service table.
func LoadServices(path string, dist [][]float64) ([]*Service, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	services := make([]*Service, 0, len(rows))
	for i, record := range rows {
		if len(record) < 7 {
			return nil, fmt.Errorf("service row %d has %d fields, want 7", i, len(record))
		}
		origin, err := fieldInt(record, 0, "origin", i)
		if err != nil {
			return nil, err
		}
		destination, err := fieldInt(record, 1, "destination", i)
		if err != nil {
			return nil, err
		}
		departure, err := fieldInt64(record, 2, "departure", i)
		if err != nil {
			return nil, err
		}
		arrival, err := fieldInt64(record, 3, "arrival", i)
		if err != nil {
			return nil, err
		}
		cost, err := fieldFloat(record, 4, "cost", i)
		if err != nil {
			return nil, err
		}
		capacity, err := fieldInt(record, 5, "capacity", i)
		if err != nil {
			return nil, err
		}
		vehicle, err := fieldInt(record, 6, "vehicle id", i)
		if err != nil {
			return nil, err
		}
		if origin < 0 || origin >= len(dist) || destination < 0 || destination >= len(dist) {
			return nil, fmt.Errorf("service row %d references nodes (%d,%d) outside distance matrix: %w",
				i, origin, destination, ErrUnknownEntity)
		}
		services = append(services, &Service{
			Origin:            origin,
			Destination:       destination,
			Departure:         departure,
			Arrival:           arrival,
			Cost:              cost,
			Capacity:          capacity,
			VehicleID:         vehicle,
			Distance:          dist[origin][destination],
			RemainingDistance: dist[origin][destination],
		})
	}
	return services, nil
}

// Instance is one complete loaded problem instance.
type Instance struct {
	Nodes     []Node
	Distances [][]float64
	Requests  []*Request
	Vehicles  []*Vehicle
	Services  []*Service
}

// LoadInstance reads all instance tables named by the scenario config. The
// services table is optional: instances without fixed-route modes omit it.
func LoadInstance(files InstanceFiles) (*Instance, error) {
	nodes, err := LoadNodes(files.Nodes)
	if err != nil {
		return nil, err
	}
	dist, err := LoadDistanceMatrix(files.Distances)
	if err != nil {
		return nil, err
	}
	requests, err := LoadRequests(files.Requests, dist)
	if err != nil {
		return nil, err
	}
	vehicles, err := LoadVehicles(files.Vehicles)
	if err != nil {
		return nil, err
	}
	var services []*Service
	if files.Services != "" {
		services, err = LoadServices(files.Services, dist)
		if err != nil {
			return nil, err
		}
	}
	return &Instance{
		Nodes:     nodes,
		Distances: dist,
		Requests:  requests,
		Vehicles:  vehicles,
		Services:  services,
	}, nil
}

// BuildEnvironment assembles a ready-to-run environment: network, registry,
// agent wiring (carrier fleets are derived from the vehicle table), and the
// initial event population — one RequestArrived per request at its window
// lower bound and one VehicleDeparted per pre-scheduled service.
func BuildEnvironment(cfg *ScenarioConfig, inst *Instance) (*Environment, error) {
	net, err := NewNetwork(inst.Nodes, inst.Distances)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry(net.NumNodes())
	salt := NegotiationSalt(NewSimulationKey(cfg.Seed))
	for _, c := range cfg.Agents.Carriers {
		if err := reg.AddCarrier(&Carrier{ID: c.ID, SpeedJitter: c.SpeedJitter, Salt: salt}); err != nil {
			return nil, err
		}
	}
	for _, l := range cfg.Agents.LSPs {
		if err := reg.AddLSP(&LSP{ID: l.ID, Carriers: l.Carriers}); err != nil {
			return nil, err
		}
	}
	for _, s := range cfg.Agents.Shippers {
		if err := reg.AddShipper(&Shipper{ID: s.ID, LSPs: s.LSPs}); err != nil {
			return nil, err
		}
	}
	for _, v := range inst.Vehicles {
		if err := reg.AddVehicle(v); err != nil {
			return nil, err
		}
		c, err := reg.Carrier(v.CarrierID)
		if err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", v.ID, err)
		}
		c.Fleet = append(c.Fleet, v.ID)
	}
	for _, r := range inst.Requests {
		if err := reg.AddRequest(r); err != nil {
			return nil, err
		}
	}
	for _, s := range inst.Services {
		if err := reg.AddScheduledService(s); err != nil {
			return nil, err
		}
	}
	if err := reg.ValidateWiring(); err != nil {
		return nil, err
	}

	policy := &CheapestDirectPolicy{
		LoadTime:          cfg.LoadTime,
		ContainerCapacity: cfg.ContainerCapacity,
	}
	env := NewEnvironment(cfg, reg, net, policy)
	for _, r := range inst.Requests {
		env.Schedule(Event{
			Timestamp:  r.Window.Lower,
			Kind:       EventRequestArrived,
			RequestID:  r.ID,
			VehicleID:  -1,
			ServiceIdx: -1,
		})
	}
	for _, s := range reg.ScheduledServices {
		env.Schedule(Event{
			Timestamp:  s.Departure,
			Kind:       EventVehicleDeparted,
			RequestID:  -1,
			VehicleID:  s.VehicleID,
			ServiceIdx: -1,
		})
	}
	return env, nil
}
