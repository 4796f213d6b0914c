package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmirinski/Agent-Based-Simulation/sim/trace"
)

func twoNodeNetwork(t *testing.T) *Network {
	t.Helper()
	nodes := []Node{
		{ID: 0, Name: "A", Access: map[Mode]bool{ModeTruck: true, ModeTrain: true}},
		{ID: 1, Name: "B", Access: map[Mode]bool{ModeTruck: true, ModeTrain: true}},
	}
	net, err := NewNetwork(nodes, [][]float64{{0, 100}, {100, 0}})
	require.NoError(t, err)
	return net
}

// singleTruckEnv wires the smallest meaningful run: one truck at node 0, one
// request for a full container from node 0 to node 1 due at t=10.
func singleTruckEnv(t *testing.T) *Environment {
	t.Helper()
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Amount: 24, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending}
	require.NoError(t, reg.AddRequest(req))
	require.NoError(t, reg.ValidateWiring())

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: cfg.LoadTime, ContainerCapacity: cfg.ContainerCapacity})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})
	return env
}

func TestRun_SingleTruckDelivery(t *testing.T) {
	env := singleTruckEnv(t)

	require.NoError(t, env.Run())

	// Loading takes one tick, the trip ceil(100/50)=2 ticks, unloading one.
	want := []trace.EventRecord{
		{Timestamp: 10, Kind: "request_arrived"},
		{Timestamp: 11, Kind: "vehicle_departed"},
		{Timestamp: 13, Kind: "vehicle_arrived"},
		{Timestamp: 14, Kind: "request_completed"},
	}
	assert.Equal(t, want, env.Trace.Events)
	assert.Equal(t, int64(14), env.Clock)

	trucks := env.Registry.Matrix(ModeTruck)
	assert.Equal(t, 0, trucks.At(0, 0))
	assert.Equal(t, 0, trucks.At(0, 1))
	assert.Equal(t, 1, trucks.At(1, 1))
	assert.Equal(t, 1, env.Registry.ContainerMatrix().At(1, 1))

	req, _ := env.Registry.Request(0)
	assert.Equal(t, RequestFulfilled, req.State)
	v, _ := env.Registry.Vehicle(0)
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, Location{From: 1, To: 1}, v.Location)
	assert.Zero(t, v.NumContainers)

	assert.Equal(t, 1, env.Stats.CompletedRequests)
	assert.Zero(t, env.Stats.UnservedRequests)
	assert.Equal(t, float64(100), env.Stats.DistanceByMode[ModeTruck])
}

func TestRun_SecondRequestCannotDoubleBookVehicle(t *testing.T) {
	// GIVEN two identical requests due at t=10 and a single one-truck fleet
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	for id := 0; id < 2; id++ {
		require.NoError(t, reg.AddRequest(&Request{
			ID: id, Origin: 0, Destination: 1, Amount: 24,
			Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending,
		}))
	}

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: cfg.LoadTime, ContainerCapacity: cfg.ContainerCapacity})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 1, VehicleID: -1, ServiceIdx: -1})

	// THEN the run completes: the truck serves the first request and the
	// second finds no free vehicle instead of crashing the matrices
	require.NoError(t, env.Run())
	first, _ := env.Registry.Request(0)
	second, _ := env.Registry.Request(1)
	assert.Equal(t, RequestFulfilled, first.State)
	assert.Equal(t, RequestUnserved, second.State)
	assert.Equal(t, 1, env.Stats.CompletedRequests)
	assert.Equal(t, 1, env.Stats.UnservedRequests)
	assert.Equal(t, 1, env.Registry.Matrix(ModeTruck).Total())
}

func TestRun_VehicleReusedAcrossSequentialRequests(t *testing.T) {
	// GIVEN a second request departing from where the truck ends its first trip
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	require.NoError(t, reg.AddRequest(&Request{
		ID: 0, Origin: 0, Destination: 1, Amount: 24,
		Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending,
	}))
	require.NoError(t, reg.AddRequest(&Request{
		ID: 1, Origin: 1, Destination: 0, Amount: 24,
		Window: TimeWindow{30, 80}, ShipperID: 0, Distance: 100, State: RequestPending,
	}))

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: cfg.LoadTime, ContainerCapacity: cfg.ContainerCapacity})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})
	env.Schedule(Event{Timestamp: 30, Kind: EventRequestArrived, RequestID: 1, VehicleID: -1, ServiceIdx: -1})

	require.NoError(t, env.Run())

	for id := 0; id < 2; id++ {
		req, _ := env.Registry.Request(id)
		assert.Equal(t, RequestFulfilled, req.State, "request %d", id)
	}
	v, _ := env.Registry.Vehicle(0)
	assert.Equal(t, Location{From: 0, To: 0}, v.Location, "the truck returned home")
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, 1, env.Registry.Matrix(ModeTruck).At(0, 0))
	assert.Equal(t, float64(200), env.Stats.DistanceByMode[ModeTruck])
}

func TestRun_MatrixConservationEveryStep(t *testing.T) {
	env := singleTruckEnv(t)

	for {
		snap, more, err := env.Step()
		require.NoError(t, err)
		total := 0
		for _, row := range snap.Vehicles[ModeTruck] {
			for _, cell := range row {
				total += cell
			}
		}
		assert.Equal(t, 1, total, "truck count must be conserved at t=%d", snap.Time)
		if !more {
			break
		}
	}
}

func TestRun_ScheduledTrainService(t *testing.T) {
	// GIVEN a pre-scheduled train departing at t=15 and a request due at t=10
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTrain, 0, 48, 30, 50, 0.3, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	require.NoError(t, reg.AddScheduledService(&Service{
		Origin: 0, Destination: 1, Departure: 15, Arrival: 20,
		Capacity: 48, VehicleID: 0, Distance: 100, RemainingDistance: 100,
	}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Amount: 24, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending}
	require.NoError(t, reg.AddRequest(req))

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: cfg.LoadTime, ContainerCapacity: cfg.ContainerCapacity})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})
	env.Schedule(Event{Timestamp: 15, Kind: EventVehicleDeparted, RequestID: -1, VehicleID: 0, ServiceIdx: -1})

	// WHEN the run completes
	require.NoError(t, env.Run())

	// THEN the request rides the train's timetable, not its own arrival time
	want := []trace.EventRecord{
		{Timestamp: 10, Kind: "request_arrived"},
		{Timestamp: 15, Kind: "vehicle_departed"},
		{Timestamp: 20, Kind: "vehicle_arrived"},
		{Timestamp: 21, Kind: "request_completed"},
	}
	assert.Equal(t, want, env.Trace.Events)
	assert.Equal(t, RequestFulfilled, req.State)
	assert.Equal(t, 1, env.Registry.Matrix(ModeTrain).At(1, 1))
	assert.Equal(t, float64(100), env.Stats.DistanceByMode[ModeTrain])
}

func TestRun_TrainIdleBetweenTimetabledServices(t *testing.T) {
	// GIVEN an empty train timetabled 0->1 at t=15 and back 1->0 at t=25
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTrain, 0, 48, 30, 50, 0.3, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddScheduledService(&Service{
		Origin: 0, Destination: 1, Departure: 15, Arrival: 20,
		Capacity: 48, VehicleID: 0, Distance: 100, RemainingDistance: 100,
	}))
	require.NoError(t, reg.AddScheduledService(&Service{
		Origin: 1, Destination: 0, Departure: 25, Arrival: 30,
		Capacity: 48, VehicleID: 0, Distance: 100, RemainingDistance: 100,
	}))

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: cfg.LoadTime, ContainerCapacity: cfg.ContainerCapacity})
	env.Schedule(Event{Timestamp: 15, Kind: EventVehicleDeparted, RequestID: -1, VehicleID: 0, ServiceIdx: -1})
	env.Schedule(Event{Timestamp: 25, Kind: EventVehicleDeparted, RequestID: -1, VehicleID: 0, ServiceIdx: -1})

	v, _ := env.Registry.Vehicle(0)
	for env.Clock < 20 {
		_, _, err := env.Step()
		require.NoError(t, err)
	}

	// THEN the layover leaves the train idle, not loading the next service
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, Location{From: 1, To: 1}, v.Location)
	assert.Equal(t, 1, v.Services.Len())

	require.NoError(t, env.Run())
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, 1, env.Registry.Matrix(ModeTrain).At(0, 0))
	assert.Equal(t, float64(200), env.Stats.DistanceByMode[ModeTrain])
}

func TestRun_NoOfferLeavesRequestUnserved(t *testing.T) {
	// GIVEN a shipper whose whole chain bottoms out in an empty fleet
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Amount: 24, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending}
	require.NoError(t, reg.AddRequest(req))

	cfg := DefaultScenarioConfig()
	env := NewEnvironment(cfg, reg, net, &CheapestDirectPolicy{LoadTime: 1, ContainerCapacity: 24})
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})

	// THEN the run finishes normally instead of failing
	require.NoError(t, env.Run())
	assert.Equal(t, RequestUnserved, req.State)
	assert.Equal(t, 1, env.Stats.UnservedRequests)
	assert.Zero(t, env.Stats.CompletedRequests)
}

func TestRun_TwoLegPlanHandsOverCleanly(t *testing.T) {
	// GIVEN a chained plan: truck 0 covers 0->1, truck 1 covers 1->2
	nodes := []Node{
		{ID: 0, Name: "A", Access: map[Mode]bool{ModeTruck: true}},
		{ID: 1, Name: "B", Access: map[Mode]bool{ModeTruck: true}},
		{ID: 2, Name: "C", Access: map[Mode]bool{ModeTruck: true}},
	}
	net, err := NewNetwork(nodes, [][]float64{{0, 100, 200}, {100, 0, 100}, {200, 100, 0}})
	require.NoError(t, err)
	reg := NewRegistry(3)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddVehicle(NewVehicle(1, ModeTruck, 1, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0, 1}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	req := &Request{ID: 0, Origin: 0, Destination: 2, Amount: 24, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 200, State: RequestPending}
	require.NoError(t, reg.AddRequest(req))

	policy := &fixedPlanPolicy{plans: []RequestService{{Legs: []Leg{
		{Quantity: 24, Spec: &ServiceSpec{
			VehicleID: 0, Origin: 0, Destination: 1,
			Departure: 11, Arrival: 13, Capacity: 10, Distance: 100,
		}},
		{Quantity: 24, Spec: &ServiceSpec{
			VehicleID: 1, Origin: 1, Destination: 2,
			Departure: 14, Arrival: 16, Capacity: 10, Distance: 100,
		}},
	}}}}
	env := NewEnvironment(DefaultScenarioConfig(), reg, net, policy)
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})

	require.NoError(t, env.Run())

	// THEN the shipment is counted once and each truck is empty after its leg
	assert.Equal(t, RequestFulfilled, req.State)
	assert.Equal(t, 1, env.Stats.CompletedRequests)
	containers := env.Registry.ContainerMatrix()
	assert.Equal(t, 1, containers.Total(), "one shipment must appear once")
	assert.Equal(t, 1, containers.At(2, 2))
	for id := 0; id < 2; id++ {
		v, _ := env.Registry.Vehicle(id)
		assert.Zero(t, v.NumContainers, "vehicle %d still loaded", id)
		assert.Equal(t, StatusIdle, v.Status, "vehicle %d", id)
		assert.Zero(t, v.Services.Len())
		assert.Nil(t, v.Current)
	}
	assert.Equal(t, float64(200), env.Stats.DistanceByMode[ModeTruck])
}

// fixedPlanPolicy returns a canned plan, used to drive the engine into
// states the default policy refuses to produce.
type fixedPlanPolicy struct {
	plans []RequestService
}

func (p *fixedPlanPolicy) Decide(req *Request, quote Quote, reg *Registry, net *Network, now int64) ([]RequestService, error) {
	return p.plans, nil
}

func TestRun_InfeasiblePlanIsFatal(t *testing.T) {
	// GIVEN a plan loading eleven containers onto a ten-container truck
	net := twoNodeNetwork(t)
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Amount: 264, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100, State: RequestPending}
	require.NoError(t, reg.AddRequest(req))

	policy := &fixedPlanPolicy{plans: []RequestService{{Legs: []Leg{{
		Quantity: 264,
		Spec: &ServiceSpec{
			VehicleID: 0, Origin: 0, Destination: 1,
			Departure: 11, Arrival: 13, Capacity: 10, Distance: 100,
		},
	}}}}}
	env := NewEnvironment(DefaultScenarioConfig(), reg, net, policy)
	env.Schedule(Event{Timestamp: 10, Kind: EventRequestArrived, RequestID: 0, VehicleID: -1, ServiceIdx: -1})

	err := env.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestStep_UnknownEventKindIsFatal(t *testing.T) {
	env := singleTruckEnv(t)
	env.Queue.Push(Event{Timestamp: 1, Kind: EventKind(99)})

	_, _, err := env.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}

func TestSchedule_PastTimestampDropped(t *testing.T) {
	env := singleTruckEnv(t)
	env.Clock = 20

	env.Schedule(Event{Timestamp: 5, Kind: EventVehicleArrived, RequestID: 0, VehicleID: 0})

	assert.Equal(t, 1, env.Queue.Len(), "only the initial request event remains")
	assert.Equal(t, 1, env.Stats.DroppedEvents)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	first := singleTruckEnv(t)
	second := singleTruckEnv(t)

	require.NoError(t, first.Run())
	require.NoError(t, second.Run())

	assert.Equal(t, first.Trace.Events, second.Trace.Events)
	assert.Equal(t, first.Trace.Snapshots, second.Trace.Snapshots)
	assert.Equal(t, first.Stats.EventCounts, second.Stats.EventCounts)
}

func TestStep_EmptyQueueSignalsHalt(t *testing.T) {
	net := twoNodeNetwork(t)
	env := NewEnvironment(DefaultScenarioConfig(), NewRegistry(2), net, &CheapestDirectPolicy{LoadTime: 1, ContainerCapacity: 24})

	snap, more, err := env.Step()

	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, int64(1), snap.Time)
}
