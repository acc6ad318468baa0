package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"iou-ledger/internal/domain"
)

// Metadata keys set by the auth interceptor after token validation.
const (
	MetadataActorID   = "actor-id"
	MetadataActorRole = "actor-role"
	MetadataActorCode = "actor-code"
	MetadataRequestID = "request-id"
)

// GetActorFromContext extracts the caller's ActorContext from the gRPC
// metadata. It expects the "actor-id" and "actor-role" headers.
func GetActorFromContext(ctx context.Context) (domain.ActorContext, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.ActorContext{}, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	ids := md.Get(MetadataActorID)
	if len(ids) == 0 || ids[0] == "" {
		return domain.ActorContext{}, status.Errorf(codes.Unauthenticated, "actor id is not provided in metadata")
	}
	roles := md.Get(MetadataActorRole)
	if len(roles) == 0 {
		return domain.ActorContext{}, status.Errorf(codes.Unauthenticated, "actor role is not provided in metadata")
	}

	actor := domain.ActorContext{ActorID: ids[0], Role: domain.Role(roles[0])}
	if !actor.Role.Valid() {
		return domain.ActorContext{}, status.Errorf(codes.PermissionDenied, "unknown role %q", roles[0])
	}
	return actor, nil
}

// GetRequestIDFromContext returns the request id assigned by the interceptor,
// or "" when absent.
func GetRequestIDFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(MetadataRequestID); len(v) > 0 {
		return v[0]
	}
	return ""
}
