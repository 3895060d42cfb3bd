package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ordersaga/entity"
)

// SeatingClient holds, allocates, and releases seats in the seating
// service.
type SeatingClient struct {
	jsonClient
}

func NewSeatingClient(baseURL string, timeout time.Duration) SeatingClient {
	return SeatingClient{jsonClient: newJSONClient(baseURL, timeout)}
}

func (c SeatingClient) GetSeats(ctx context.Context, eventID int64, seatIDs []string) ([]entity.Seat, error) {
	var seats []entity.Seat
	path := fmt.Sprintf("/events/%d/seats", eventID)
	if len(seatIDs) > 0 {
		path += "?seat_ids=" + joinSeatIDs(seatIDs)
	}
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &seats)
	if err != nil {
		return nil, entity.WrapError(entity.KindUpstreamUnavailable, "seating: get seats", err)
	}
	if status != http.StatusOK {
		return nil, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("seating: unexpected status %d", status))
	}
	return seats, nil
}

// ReserveSeats places a time-limited hold on the requested seats.
// Success=false in the response (as opposed to a transport error) means
// the seats are unavailable and CreateOrder should fail with
// SeatUnavailable, not retry.
func (c SeatingClient) ReserveSeats(ctx context.Context, req entity.ReserveSeatsRequest) (entity.ReserveSeatsResponse, error) {
	var resp entity.ReserveSeatsResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/reservations", req, &resp)
	if err != nil {
		return entity.ReserveSeatsResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "seating: reserve seats", err)
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return entity.ReserveSeatsResponse{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("seating: unexpected status %d", status))
	}
	return resp, nil
}

func (c SeatingClient) AllocateSeats(ctx context.Context, req entity.AllocateSeatsRequest) (entity.AllocateSeatsResponse, error) {
	var resp entity.AllocateSeatsResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/allocations", req, &resp)
	if err != nil {
		return entity.AllocateSeatsResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "seating: allocate seats", err)
	}
	if status != http.StatusOK {
		return entity.AllocateSeatsResponse{}, entity.NewError(entity.KindFulfillmentFailed, fmt.Sprintf("seating: unexpected status %d", status))
	}
	return resp, nil
}

func (c SeatingClient) ReleaseSeats(ctx context.Context, req entity.ReleaseSeatsRequest) (entity.ReleaseSeatsResponse, error) {
	var resp entity.ReleaseSeatsResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/releases", req, &resp)
	if err != nil {
		return entity.ReleaseSeatsResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "seating: release seats", err)
	}
	if status != http.StatusOK {
		return entity.ReleaseSeatsResponse{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("seating: unexpected status %d", status))
	}
	return resp, nil
}

func joinSeatIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}
