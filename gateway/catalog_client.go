package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ordersaga/entity"
)

// CatalogClient looks up event metadata from the catalog service.
type CatalogClient struct {
	jsonClient
}

func NewCatalogClient(baseURL string, timeout time.Duration) CatalogClient {
	return CatalogClient{jsonClient: newJSONClient(baseURL, timeout)}
}

// GetEvent fetches the event record CreateOrder needs to validate
// sellability. A 404 is reported as entity.KindNotFound so the orchestrator
// can branch on it without inspecting the status code itself.
func (c CatalogClient) GetEvent(ctx context.Context, eventID int64) (entity.CatalogEvent, error) {
	var event entity.CatalogEvent
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/events/%d", eventID), nil, &event)
	if err != nil {
		return entity.CatalogEvent{}, entity.WrapError(entity.KindUpstreamUnavailable, "catalog: get event", err)
	}
	switch status {
	case http.StatusOK:
		return event, nil
	case http.StatusNotFound:
		return entity.CatalogEvent{}, entity.NewError(entity.KindNotFound, "catalog: event not found")
	default:
		return entity.CatalogEvent{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("catalog: unexpected status %d", status))
	}
}
