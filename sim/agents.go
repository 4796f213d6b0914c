package sim

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

func isNoOffer(err error) bool { return errors.Is(err, ErrNoOffer) }

// travelTicks is the quote-side travel time estimate, rounded up to whole
// ticks. Matches Vehicle.TravelTime so a committed quote and the executed
// leg agree.
func travelTicks(distance, speed float64) int64 {
	return int64(math.Ceil(distance / speed))
}

// Negotiation agents. Shippers, LSPs, and carriers are roles in the quote
// chain, not physical entities: their relations are static configuration
// loaded once, and their Quote methods are pure with respect to engine
// state. Resources are committed only by the dispatch path after a quote is
// selected.

// Shipper issues transport requests and collects quotes from its LSP pool.
type Shipper struct {
	ID   int
	LSPs []int
}

// LSP (logistics service provider) brokers between shippers and its carrier
// pool.
type LSP struct {
	ID       int
	Carriers []int
}

// Carrier operates a fleet of vehicles, referenced by id.
type Carrier struct {
	ID    int
	Fleet []int

	// SpeedJitter adds a bounded, deterministic perturbation to fleet speeds
	// when quoting, derived from the salt and the (carrier, request) pair so
	// repeated calls return identical results. Zero disables it.
	SpeedJitter float64

	// Salt folds the scenario's master seed into the jitter hash: different
	// seeds explore different jittered quotes while a single run stays pure.
	Salt int64
}

// Quote is a committed offer: the carrier and vehicle that would serve the
// request, the price, and the delivery time in ticks.
type Quote struct {
	CarrierID int
	LSPID     int
	VehicleID int
	Price     float64
	Time      int64
}

// quoteSpeed perturbs a vehicle speed by at most ±SpeedJitter, keyed on the
// salt and the carrier and request ids.
func (c *Carrier) quoteSpeed(base float64, requestID int) float64 {
	if c.SpeedJitter == 0 {
		return base
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d/%d", c.Salt, c.ID, requestID)
	// Map the hash onto [-1, 1).
	unit := float64(int64(h.Sum64())) / float64(1<<63)
	return base + unit*c.SpeedJitter
}

// Quote computes the carrier's cheapest offer for a request across its
// fleet: per vehicle, time = ceil(distance/speed) and price = time * unit
// cost. Ties are broken by lower time, then lower vehicle id. An empty fleet
// yields ErrNoOffer.
func (c *Carrier) Quote(req *Request, reg *Registry) (Quote, error) {
	best := Quote{CarrierID: c.ID, VehicleID: -1}
	for _, vehicleID := range c.Fleet {
		v, err := reg.Vehicle(vehicleID)
		if err != nil {
			return Quote{}, fmt.Errorf("carrier %d quoting request %d: %w", c.ID, req.ID, err)
		}
		speed := c.quoteSpeed(v.Speed, req.ID)
		if speed <= 0 {
			continue
		}
		time := travelTicks(req.Distance, speed)
		price := float64(time) * v.UnitCost
		if best.VehicleID == -1 ||
			price < best.Price ||
			(price == best.Price && time < best.Time) ||
			(price == best.Price && time == best.Time && vehicleID < best.VehicleID) {
			best.VehicleID = vehicleID
			best.Price = price
			best.Time = time
		}
	}
	if best.VehicleID == -1 {
		return Quote{}, fmt.Errorf("carrier %d has no eligible vehicle for request %d: %w", c.ID, req.ID, ErrNoOffer)
	}
	return best, nil
}

// Quote queries every carrier in the LSP's pool and keeps the minimum-price
// offer, ties broken by carrier id ascending. A pool with no priced offers
// yields ErrNoOffer.
func (l *LSP) Quote(req *Request, reg *Registry) (Quote, error) {
	best := Quote{LSPID: l.ID, CarrierID: -1, VehicleID: -1}
	for _, carrierID := range l.Carriers {
		c, err := reg.Carrier(carrierID)
		if err != nil {
			return Quote{}, fmt.Errorf("lsp %d quoting request %d: %w", l.ID, req.ID, err)
		}
		q, err := c.Quote(req, reg)
		if err != nil {
			if isNoOffer(err) {
				continue
			}
			return Quote{}, err
		}
		if best.CarrierID == -1 || q.Price < best.Price ||
			(q.Price == best.Price && carrierID < best.CarrierID) {
			q.LSPID = l.ID
			best = q
		}
	}
	if best.CarrierID == -1 {
		return Quote{}, fmt.Errorf("lsp %d has no carriers available for request %d: %w", l.ID, req.ID, ErrNoOffer)
	}
	return best, nil
}

// Quote queries every LSP in the shipper's list and keeps the minimum-price
// offer, ties broken by lsp id ascending. The call commits no resources; the
// returned quote's Time is the delivery time the shipper reports upstream.
func (s *Shipper) Quote(req *Request, reg *Registry) (Quote, error) {
	best := Quote{CarrierID: -1, LSPID: -1, VehicleID: -1}
	for _, lspID := range s.LSPs {
		l, err := reg.LSP(lspID)
		if err != nil {
			return Quote{}, fmt.Errorf("shipper %d quoting request %d: %w", s.ID, req.ID, err)
		}
		q, err := l.Quote(req, reg)
		if err != nil {
			if isNoOffer(err) {
				continue
			}
			return Quote{}, err
		}
		if best.LSPID == -1 || q.Price < best.Price ||
			(q.Price == best.Price && lspID < best.LSPID) {
			best = q
		}
	}
	if best.LSPID == -1 {
		return Quote{}, fmt.Errorf("shipper %d has no offers for request %d: %w", s.ID, req.ID, ErrNoOffer)
	}
	return best, nil
}
