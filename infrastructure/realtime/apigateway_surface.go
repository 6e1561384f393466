package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jarvis-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"
)

// PostToConnectionAPI is the subset of the management API client used for pushes
type PostToConnectionAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// NewManagementClient builds a management API client for a websocket stage endpoint
// such as "abc123.execute-api.eu-west-1.amazonaws.com/prod".
func NewManagementClient(cfg aws.Config, endpoint string) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", endpoint))
	})
}

// APIGatewaySurface pushes graph snapshots to every API Gateway websocket
// connection registered for the session. Gone connections are deregistered.
type APIGatewaySurface struct {
	client      PostToConnectionAPI
	connections ports.ConnectionStore
	logger      *zap.Logger
}

// NewAPIGatewaySurface creates a new API Gateway render surface
func NewAPIGatewaySurface(client PostToConnectionAPI, connections ports.ConnectionStore, logger *zap.Logger) *APIGatewaySurface {
	return &APIGatewaySurface{
		client:      client,
		connections: connections,
		logger:      logger,
	}
}

// Render sends snapshot to all of the session's connections
func (s *APIGatewaySurface) Render(ctx context.Context, snapshot ports.GraphSnapshot) error {
	connectionIDs, err := s.connections.ListBySession(ctx, snapshot.SessionID)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(ports.NewSnapshotMessage(snapshot, time.Now().Unix()))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var failed int
	for _, connectionID := range connectionIDs {
		if err := s.post(ctx, connectionID, payload); err != nil {
			failed++
			s.logger.Warn("Failed to push snapshot",
				zap.String("connectionID", connectionID),
				zap.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d snapshot pushes failed", failed, len(connectionIDs))
	}
	return nil
}

func (s *APIGatewaySurface) post(ctx context.Context, connectionID string, payload []byte) error {
	_, err := s.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err == nil {
		return nil
	}

	var gone *apigwtypes.GoneException
	if errors.As(err, &gone) {
		s.logger.Info("Connection gone, removing", zap.String("connectionID", connectionID))
		if err := s.connections.Remove(ctx, connectionID); err != nil {
			s.logger.Warn("Failed to remove stale connection",
				zap.String("connectionID", connectionID),
				zap.Error(err),
			)
		}
		return nil
	}
	return err
}
