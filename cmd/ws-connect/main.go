// Package main implements the API Gateway WebSocket lifecycle Lambda.
// $connect registers a concept graph subscriber; $disconnect removes it.
package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"jarvis-backend/application/ports"
	"jarvis-backend/infrastructure/config"
	"jarvis-backend/infrastructure/persistence/dynamodb"
	"jarvis-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// ConnectionHandler handles the WebSocket lifecycle routes
type ConnectionHandler struct {
	tokens      TokenValidator
	connections ports.ConnectionStore
	logger      *zap.Logger
}

// Handle dispatches on the route key
func (h *ConnectionHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch req.RequestContext.RouteKey {
	case "$connect":
		return h.connect(ctx, req), nil
	case "$disconnect":
		return h.disconnect(ctx, req), nil
	default:
		return respond(http.StatusBadRequest, "unsupported route"), nil
	}
}

func (h *ConnectionHandler) connect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	connectionID := req.RequestContext.ConnectionID
	sessionID := req.QueryStringParameters["session"]
	if sessionID == "" {
		return respond(http.StatusBadRequest, "session is required")
	}

	claims, err := h.tokens.ValidateToken(tokenFrom(req))
	if err != nil {
		h.logger.Warn("Rejected WebSocket connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return respond(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.connections.Register(ctx, connectionID, sessionID, claims.UserID); err != nil {
		h.logger.Error("Failed to register connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return respond(http.StatusInternalServerError, "internal server error")
	}

	h.logger.Info("WebSocket connection established",
		zap.String("connectionID", connectionID),
		zap.String("sessionID", sessionID),
		zap.String("userID", claims.UserID),
	)
	return respond(http.StatusOK, "connected")
}

func (h *ConnectionHandler) disconnect(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	connectionID := req.RequestContext.ConnectionID
	if err := h.connections.Remove(ctx, connectionID); err != nil {
		h.logger.Error("Failed to remove connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return respond(http.StatusInternalServerError, "internal server error")
	}
	return respond(http.StatusOK, "disconnected")
}

// tokenFrom reads ?token= and falls back to the Authorization header
func tokenFrom(req events.APIGatewayWebsocketProxyRequest) string {
	if token := req.QueryStringParameters["token"]; token != "" {
		return token
	}
	for key, value := range req.Headers {
		if strings.EqualFold(key, "Authorization") {
			return strings.TrimPrefix(value, "Bearer ")
		}
	}
	return ""
}

func respond(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status, Body: body}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	tokens, err := auth.NewJWTService(cfg.SigningSecret(), cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	handler := &ConnectionHandler{
		tokens:      tokens,
		connections: dynamodb.NewConnectionStore(awsdynamodb.NewFromConfig(awsCfg), cfg.ConnectionsTable, cfg.ConnectionsIndex, logger),
		logger:      logger,
	}

	lambda.Start(handler.Handle)
}
