package sim

import (
	"container/heap"
	"fmt"
)

// Rider records one request riding a service leg and which of the request's
// request-services the leg belongs to.
type Rider struct {
	RequestID  int
	ServiceIdx int
	Containers int
}

// Service is one scheduled vehicle leg between two nodes, optionally
// carrying one or more requests. Fixed-route modes pre-schedule their
// services at instance build; on-demand modes get services created by the
// decision policy. A service lives in its vehicle's queue until the leg's
// arrival is processed.
type Service struct {
	ID                int
	Origin            int
	Destination       int
	Departure         int64
	Arrival           int64
	Cost              float64
	Capacity          int
	VehicleID         int
	Distance          float64
	RemainingDistance float64
	Riders            []Rider
}

// RiderContainers returns the containers currently committed to the service.
func (s *Service) RiderContainers() int {
	total := 0
	for _, r := range s.Riders {
		total += r.Containers
	}
	return total
}

// Attach adds a rider, enforcing the service capacity.
func (s *Service) Attach(r Rider) error {
	if s.RiderContainers()+r.Containers > s.Capacity {
		return fmt.Errorf("service %d capacity %d cannot take %d more containers: %w",
			s.ID, s.Capacity, r.Containers, ErrCapacityExceeded)
	}
	s.Riders = append(s.Riders, r)
	return nil
}

func (s Service) String() string {
	return fmt.Sprintf("Service(ID: %d, %d->%d, dep: %d, arr: %d, vehicle: %d)",
		s.ID, s.Origin, s.Destination, s.Departure, s.Arrival, s.VehicleID)
}

// ServiceQueue orders a vehicle's assigned services by departure time, ties
// by service id. The front service is the vehicle's current or next leg.
type ServiceQueue struct {
	services serviceHeap
}

// NewServiceQueue returns an empty queue.
func NewServiceQueue() *ServiceQueue {
	return &ServiceQueue{services: make(serviceHeap, 0)}
}

// Len returns the number of queued services.
func (q *ServiceQueue) Len() int { return len(q.services) }

// Push inserts a service.
func (q *ServiceQueue) Push(s *Service) {
	heap.Push(&q.services, s)
}

// Peek returns the earliest-departing service without removing it, or nil
// when the queue is empty.
func (q *ServiceQueue) Peek() *Service {
	if len(q.services) == 0 {
		return nil
	}
	return q.services[0]
}

// Pop removes and returns the earliest-departing service, or nil when the
// queue is empty.
func (q *ServiceQueue) Pop() *Service {
	if len(q.services) == 0 {
		return nil
	}
	return heap.Pop(&q.services).(*Service)
}

type serviceHeap []*Service

func (h serviceHeap) Len() int { return len(h) }

func (h serviceHeap) Less(i, j int) bool {
	if h[i].Departure != h[j].Departure {
		return h[i].Departure < h[j].Departure
	}
	return h[i].ID < h[j].ID
}

func (h serviceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *serviceHeap) Push(x any) {
	*h = append(*h, x.(*Service))
}

func (h *serviceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
