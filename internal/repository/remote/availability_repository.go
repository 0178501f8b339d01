package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type AvailabilityRepository struct {
	client *Client
}

func NewAvailabilityRepository(client *Client) *AvailabilityRepository {
	return &AvailabilityRepository{client: client}
}

func availabilityPath(tutorID string) string {
	return "/internal/tutors/" + url.PathEscape(tutorID) + "/availability"
}

func (r *AvailabilityRepository) Get(ctx context.Context, tutorID string) (*model.AvailabilityWindow, error) {
	var window model.AvailabilityWindow
	_, err := r.client.get(ctx, availabilityPath(tutorID), nil, &window)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	if window.TutorID == "" {
		window.TutorID = tutorID
	}
	return &window, nil
}

func (r *AvailabilityRepository) Upsert(ctx context.Context, window *model.AvailabilityWindow) error {
	if _, err := r.client.send(ctx, http.MethodPut, availabilityPath(window.TutorID), window, nil); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}
