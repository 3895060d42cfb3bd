package gateway

import (
	"context"
	"sync"

	"ordersaga/entity"
)

// SeatingMock is an in-memory fake of SeatingClient. Unavailable marks seat
// ids that ReserveSeats should refuse to hold, simulating a seat already
// taken by another order.
type SeatingMock struct {
	mu            sync.Mutex
	Seats         map[string]entity.Seat
	Unavailable   map[string]bool
	Reserved      map[string]string // seat id -> user id
	ReleaseCalls  []entity.ReleaseSeatsRequest
	AllocateCalls []entity.AllocateSeatsRequest
	Err           error
}

func NewSeatingMock() *SeatingMock {
	return &SeatingMock{
		Seats:       make(map[string]entity.Seat),
		Unavailable: make(map[string]bool),
		Reserved:    make(map[string]string),
	}
}

func (m *SeatingMock) PutSeat(seat entity.Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seats[seat.SeatID] = seat
}

func (m *SeatingMock) MarkUnavailable(seatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unavailable[seatID] = true
}

func (m *SeatingMock) GetSeats(ctx context.Context, eventID int64, seatIDs []string) ([]entity.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []entity.Seat
	for _, id := range seatIDs {
		if seat, ok := m.Seats[id]; ok {
			out = append(out, seat)
		}
	}
	return out, nil
}

func (m *SeatingMock) ReserveSeats(ctx context.Context, req entity.ReserveSeatsRequest) (entity.ReserveSeatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.ReserveSeatsResponse{}, m.Err
	}
	for _, id := range req.SeatIDs {
		if m.Unavailable[id] {
			return entity.ReserveSeatsResponse{Success: false, Message: "seat " + id + " unavailable"}, nil
		}
	}
	var reserved []entity.Seat
	for _, id := range req.SeatIDs {
		m.Reserved[id] = req.UserID
		reserved = append(reserved, m.Seats[id])
	}
	return entity.ReserveSeatsResponse{Success: true, Message: "reserved", ReservedSeats: reserved}, nil
}

func (m *SeatingMock) AllocateSeats(ctx context.Context, req entity.AllocateSeatsRequest) (entity.AllocateSeatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.AllocateSeatsResponse{}, m.Err
	}
	m.AllocateCalls = append(m.AllocateCalls, req)
	return entity.AllocateSeatsResponse{Success: true, Message: "allocated"}, nil
}

func (m *SeatingMock) ReleaseSeats(ctx context.Context, req entity.ReleaseSeatsRequest) (entity.ReleaseSeatsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.ReleaseSeatsResponse{}, m.Err
	}
	m.ReleaseCalls = append(m.ReleaseCalls, req)
	for _, id := range req.SeatIDs {
		delete(m.Reserved, id)
	}
	return entity.ReleaseSeatsResponse{Success: true, Message: "released"}, nil
}
