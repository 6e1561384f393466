package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"jarvis-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type registration struct {
	connectionID, sessionID, userID string
}

type fakeConnections struct {
	registered []registration
	removed    []string
	err        error
}

func (f *fakeConnections) Register(ctx context.Context, connectionID, sessionID, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, registration{connectionID, sessionID, userID})
	return nil
}

func (f *fakeConnections) Remove(ctx context.Context, connectionID string) error {
	f.removed = append(f.removed, connectionID)
	return f.err
}

func (f *fakeConnections) ListBySession(ctx context.Context, sessionID string) ([]string, error) {
	return nil, nil
}

func newConnectionHandler(t *testing.T, connections *fakeConnections) (*ConnectionHandler, string) {
	t.Helper()
	tokens, err := auth.NewJWTService("ws-secret", "jarvis-backend", time.Hour)
	require.NoError(t, err)
	token, err := tokens.GenerateToken("u1", "u1@example.com", []string{"STUDENT"})
	require.NoError(t, err)
	return &ConnectionHandler{tokens: tokens, connections: connections, logger: zap.NewNop()}, token
}

func wsRequest(route string, query, headers map[string]string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			RouteKey:     route,
			ConnectionID: "conn-1",
		},
		QueryStringParameters: query,
		Headers:               headers,
	}
}

func TestConnect(t *testing.T) {
	connections := &fakeConnections{}
	handler, token := newConnectionHandler(t, connections)

	tests := []struct {
		name    string
		query   map[string]string
		headers map[string]string
		status  int
	}{
		{name: "query token", query: map[string]string{"session": "s1", "token": token}, status: http.StatusOK},
		{name: "header token", query: map[string]string{"session": "s1"}, headers: map[string]string{"authorization": "Bearer " + token}, status: http.StatusOK},
		{name: "missing session", query: map[string]string{"token": token}, status: http.StatusBadRequest},
		{name: "bad token", query: map[string]string{"session": "s1", "token": "nope"}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler.Handle(context.Background(), wsRequest("$connect", tt.query, tt.headers))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	assert.Equal(t, []registration{{"conn-1", "s1", "u1"}, {"conn-1", "s1", "u1"}}, connections.registered)
}

func TestConnect_StoreFailure(t *testing.T) {
	handler, token := newConnectionHandler(t, &fakeConnections{err: errors.New("throttled")})

	resp, err := handler.Handle(context.Background(), wsRequest("$connect", map[string]string{"session": "s1", "token": token}, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestDisconnectAndUnknownRoute(t *testing.T) {
	connections := &fakeConnections{}
	handler, _ := newConnectionHandler(t, connections)

	resp, err := handler.Handle(context.Background(), wsRequest("$disconnect", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"conn-1"}, connections.removed)

	resp, err = handler.Handle(context.Background(), wsRequest("$default", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
