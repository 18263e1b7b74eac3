package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prepwise/prepwise/internal/domain"
)

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type interviewCompletedData struct {
	InterviewID  string   `json:"interviewId"`
	Topic        string   `json:"topic"`
	OverallScore *float64 `json:"overallScore"`
}

// PublishInterviewCompleted pushes a completion notification onto the owner's
// channel so a connected client learns its results are ready without polling.
func (a *API) PublishInterviewCompleted(ctx context.Context, e domain.EventInterviewCompleted) error {
	iv := e.Interview

	return a.publishNotification(ctx, iv.UserID, e.Name(), interviewCompletedData{
		InterviewID:  iv.InterviewID,
		Topic:        iv.Topic,
		OverallScore: iv.OverallScore,
	})
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
