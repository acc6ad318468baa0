package interceptor

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ledgergrpc "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/config"
	"iou-ledger/internal/security"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		sec := config.GetEndpointSecurity(info.FullMethod)

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.New(nil)
		} else {
			md = md.Copy()
		}
		// Client supplied identity headers are never trusted.
		md.Delete(ledgergrpc.MetadataActorID)
		md.Delete(ledgergrpc.MetadataActorRole)
		md.Delete(ledgergrpc.MetadataActorCode)
		md.Set(ledgergrpc.MetadataRequestID, uuid.NewString())

		if sec.Level == config.SecurityPublic {
			return handler(metadata.NewIncomingContext(ctx, md), req)
		}

		token, err := extractToken(md)
		if err != nil {
			return nil, err
		}

		claims, err := i.tokenManager.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		if !sec.Allows(claims.Role) {
			return nil, status.Errorf(codes.PermissionDenied, "role %q may not call %s", claims.Role, info.FullMethod)
		}

		md.Set(ledgergrpc.MetadataActorID, claims.ActorID)
		md.Set(ledgergrpc.MetadataActorRole, string(claims.Role))
		md.Set(ledgergrpc.MetadataActorCode, claims.Code)
		return handler(metadata.NewIncomingContext(ctx, md), req)
	}
}

func extractToken(md metadata.MD) (string, error) {
	authHeader := md.Get("authorization")
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}
	token := security.BearerToken(authHeader[0])
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization token is empty")
	}
	return token, nil
}
