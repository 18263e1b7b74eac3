//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/domain"
)

const baseURL = "http://localhost:8080/api/v1"

// TestMockInterview drives the whole flow against a locally running server:
// register, generate an interview, run a mock session to completion, and
// observe the completion notification on the pubsub channel.
func TestMockInterview(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	wg := new(sync.WaitGroup)

	// Register a fresh user.
	var (
		token  string
		userID string
	)
	{
		var resp struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		call(t, ctx, "", http.MethodPost, "/auth/register", map[string]any{
			"name":     "Demo User",
			"email":    fmt.Sprintf("demo-%s@example.com", uuid.New().String()),
			"password": "demo-password",
		}, &resp)
		token = resp.Token
		userID = resp.User.ID
	}

	subscribeAsUser(t, makeRedis(t), wg, userID)

	// Generate an interview.
	var interviewID string
	{
		var resp struct {
			ID        string `json:"id"`
			Questions []struct {
				ID string `json:"id"`
			} `json:"questions"`
		}
		call(t, ctx, token, http.MethodPost, "/interviews/generate", map[string]any{
			"topic":         "arrays",
			"difficulty":    "easy",
			"questionCount": 3,
		}, &resp)
		require.Len(t, resp.Questions, 3)
		interviewID = resp.ID
	}

	// Run the mock session to completion.
	var sessionID string
	{
		var resp struct {
			Session struct {
				ID             string `json:"id"`
				TotalQuestions int    `json:"totalQuestions"`
			} `json:"session"`
		}
		call(t, ctx, token, http.MethodPost, "/mock/start", map[string]any{
			"interviewId": interviewID,
		}, &resp)
		sessionID = resp.Session.ID

		for i := 0; i < resp.Session.TotalQuestions; i++ {
			var sub struct {
				Completed bool `json:"completed"`
			}
			call(t, ctx, token, http.MethodPost, fmt.Sprintf("/mock/%s/answer", sessionID), map[string]any{
				"answer":    "I would use a hash map to track seen values.",
				"timeTaken": 42,
			}, &sub)
			t.Logf("submitted answer %d, completed=%v", i+1, sub.Completed)
		}
	}

	// The finalized interview carries score and summary.
	{
		var resp struct {
			Status       string   `json:"status"`
			OverallScore *float64 `json:"overallScore"`
		}
		call(t, ctx, token, http.MethodGet, "/interviews/"+interviewID, nil, &resp)
		require.Equal(t, "completed", resp.Status)
		require.NotNil(t, resp.OverallScore)
		t.Logf("interview completed: score=%.1f", *resp.OverallScore)
	}

	wg.Wait()
}

func call(t *testing.T, ctx context.Context, token, method, path string, body, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Less(t, resp.StatusCode, 300, "%s %s", method, path)

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func subscribeAsUser(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, userID string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("local:pubsub:user:%s", userID))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			if n.Event == domain.EventNameInterviewCompleted {
				t.Logf("notification received: %s", n.Data)
				return
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, pattern string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	sub := rc.PSubscribe(ctx, pattern)
	t.Cleanup(func() {
		sub.Close()
		cancel()
	})

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}
