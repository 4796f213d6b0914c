package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// negotiationFixture wires one shipper -> two LSPs -> four carriers with a
// two-truck fleet each, mirroring the default scenario wiring.
func negotiationFixture(t *testing.T) (*Registry, *Request) {
	t.Helper()
	reg := NewRegistry(2)

	// Vehicle speeds/costs chosen so carrier 2 owns the cheapest quote.
	specs := []struct {
		speed float64
		cost  float64
	}{
		{50, 100}, {50, 120}, // carrier 0
		{40, 100}, {60, 150}, // carrier 1
		{100, 100}, {50, 90}, // carrier 2
		{50, 200}, {25, 100}, // carrier 3
	}
	for i, s := range specs {
		require.NoError(t, reg.AddVehicle(NewVehicle(i, ModeTruck, 0, 10, s.speed, s.cost, 0.9, i/2)))
	}
	for c := 0; c < 4; c++ {
		require.NoError(t, reg.AddCarrier(&Carrier{ID: c, Fleet: []int{2 * c, 2*c + 1}}))
	}
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0, 1}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 1, Carriers: []int{2, 3}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0, 1}}))

	req := &Request{ID: 0, Origin: 0, Destination: 1, Amount: 24, Window: TimeWindow{10, 50}, ShipperID: 0, Distance: 100}
	require.NoError(t, reg.AddRequest(req))
	require.NoError(t, reg.ValidateWiring())
	return reg, req
}

func TestCarrierQuote_MinimumPriceAcrossFleet(t *testing.T) {
	reg, req := negotiationFixture(t)
	c, err := reg.Carrier(0)
	require.NoError(t, err)

	q, err := c.Quote(req, reg)
	require.NoError(t, err)

	// Vehicle 0: time ceil(100/50)=2, price 200. Vehicle 1: time 2, price 240.
	assert.Equal(t, 0, q.VehicleID)
	assert.Equal(t, float64(200), q.Price)
	assert.Equal(t, int64(2), q.Time)
}

func TestCarrierQuote_PriceTieBrokenByLowerTime(t *testing.T) {
	// GIVEN two vehicles with equal price but different travel times
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 25, 25, 0.9, 0))) // time 4, price 100
	require.NoError(t, reg.AddVehicle(NewVehicle(1, ModeTruck, 0, 10, 50, 50, 0.9, 0))) // time 2, price 100
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0, 1}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Distance: 100}

	c, _ := reg.Carrier(0)
	q, err := c.Quote(req, reg)
	require.NoError(t, err)

	assert.Equal(t, 1, q.VehicleID, "equal price must pick the faster vehicle")
	assert.Equal(t, int64(2), q.Time)
}

func TestShipperQuote_SelectsCheapestAcrossChain(t *testing.T) {
	reg, req := negotiationFixture(t)
	s, err := reg.Shipper(0)
	require.NoError(t, err)

	q, err := s.Quote(req, reg)
	require.NoError(t, err)

	// Carrier 2 vehicle 4: time ceil(100/100)=1, price 100.
	assert.Equal(t, 2, q.CarrierID)
	assert.Equal(t, 1, q.LSPID)
	assert.Equal(t, 4, q.VehicleID)
	assert.Equal(t, float64(100), q.Price)
	assert.Equal(t, int64(1), q.Time)
}

func TestShipperQuote_IsPureAndDeterministic(t *testing.T) {
	reg, req := negotiationFixture(t)
	s, _ := reg.Shipper(0)

	first, err := s.Quote(req, reg)
	require.NoError(t, err)
	second, err := s.Quote(req, reg)
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated quotes must be identical")
	// No side effects on engine state: vehicles untouched.
	for _, v := range reg.Vehicles {
		assert.Equal(t, StatusIdle, v.Status)
		assert.Zero(t, v.NumContainers)
		assert.Zero(t, v.Services.Len())
	}
}

func TestLSPQuote_PriceTieBrokenByLowerCarrierID(t *testing.T) {
	// GIVEN four carriers with identical fleets and an LSP pool listing the
	// higher id first
	reg := NewRegistry(2)
	for i := 0; i < 4; i++ {
		require.NoError(t, reg.AddVehicle(NewVehicle(i, ModeTruck, 0, 10, 50, 100, 0.9, i)))
		require.NoError(t, reg.AddCarrier(&Carrier{ID: i, Fleet: []int{i}}))
	}
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{3, 1}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, Distance: 100}

	l, _ := reg.LSP(0)
	q, err := l.Quote(req, reg)
	require.NoError(t, err)

	// THEN pool-list order must not decide the tie
	assert.Equal(t, 1, q.CarrierID)
}

func TestShipperQuote_PriceTieBrokenByLowerLSPID(t *testing.T) {
	reg := NewRegistry(2)
	for i := 0; i < 2; i++ {
		require.NoError(t, reg.AddVehicle(NewVehicle(i, ModeTruck, 0, 10, 50, 100, 0.9, i)))
		require.NoError(t, reg.AddCarrier(&Carrier{ID: i, Fleet: []int{i}}))
	}
	require.NoError(t, reg.AddLSP(&LSP{ID: 0, Carriers: []int{0}}))
	require.NoError(t, reg.AddLSP(&LSP{ID: 1, Carriers: []int{1}}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{1, 0}}))
	req := &Request{ID: 0, Origin: 0, Destination: 1, ShipperID: 0, Distance: 100}

	s, _ := reg.Shipper(0)
	q, err := s.Quote(req, reg)
	require.NoError(t, err)

	assert.Equal(t, 0, q.LSPID)
	assert.Equal(t, 0, q.CarrierID)
}

func TestCarrierQuote_EmptyFleet_NoOffer(t *testing.T) {
	reg := NewRegistry(2)
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0}))
	req := &Request{ID: 0, Distance: 100}

	c, _ := reg.Carrier(0)
	_, err := c.Quote(req, reg)
	assert.ErrorIs(t, err, ErrNoOffer)
}

func TestShipperQuote_NoCarriersAvailable_NoOffer(t *testing.T) {
	// GIVEN a shipper whose only LSP has an empty carrier pool
	reg := NewRegistry(2)
	require.NoError(t, reg.AddLSP(&LSP{ID: 0}))
	require.NoError(t, reg.AddShipper(&Shipper{ID: 0, LSPs: []int{0}}))
	req := &Request{ID: 0, Distance: 100}

	s, _ := reg.Shipper(0)
	_, err := s.Quote(req, reg)

	// THEN the condition propagates as no-offer, never a crash
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOffer)
}

func TestCarrierQuote_SpeedJitterIsDeterministic(t *testing.T) {
	reg := NewRegistry(2)
	require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
	require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}, SpeedJitter: 10, Salt: 7}))
	req := &Request{ID: 3, Distance: 100}

	c, _ := reg.Carrier(0)
	first, err := c.Quote(req, reg)
	require.NoError(t, err)
	second, err := c.Quote(req, reg)
	require.NoError(t, err)

	assert.Equal(t, first, second, "jittered quotes must still be reproducible")
}

func TestCarrierQuote_SaltVariesJitteredSpeed(t *testing.T) {
	// GIVEN the same jittered carrier under two master seeds
	quoteUnderSalt := func(salt int64) float64 {
		reg := NewRegistry(2)
		require.NoError(t, reg.AddVehicle(NewVehicle(0, ModeTruck, 0, 10, 50, 100, 0.9, 0)))
		require.NoError(t, reg.AddCarrier(&Carrier{ID: 0, Fleet: []int{0}, SpeedJitter: 10, Salt: salt}))
		c, _ := reg.Carrier(0)
		q, err := c.Quote(&Request{ID: 3, Distance: 1000}, reg)
		require.NoError(t, err)
		return q.Price
	}

	baseline := quoteUnderSalt(NegotiationSalt(NewSimulationKey(1)))
	assert.Equal(t, baseline, quoteUnderSalt(NegotiationSalt(NewSimulationKey(1))), "same seed, same quote")

	// Speeds seldom collide across salts; checking several seeds keeps the
	// test robust against a single hash coincidence.
	varied := false
	for seed := int64(2); seed < 8; seed++ {
		if quoteUnderSalt(NegotiationSalt(NewSimulationKey(seed))) != baseline {
			varied = true
			break
		}
	}
	assert.True(t, varied, "the master seed must reach the quote jitter")
}

func TestRegistryLookup_UnknownIDs(t *testing.T) {
	reg := NewRegistry(2)
	for _, err := range []error{
		func() error { _, err := reg.Request(0); return err }(),
		func() error { _, err := reg.Vehicle(-1); return err }(),
		func() error { _, err := reg.Shipper(3); return err }(),
		func() error { _, err := reg.Carrier(0); return err }(),
	} {
		if !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("lookup of missing entity: got %v, want ErrUnknownEntity", err)
		}
	}
}
