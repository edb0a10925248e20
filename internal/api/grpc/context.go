package grpc

import (
	"context"
	"net"
	"strconv"
	"strings"

	"hireflow-backend/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Metadata keys written by the identity interceptor. Client supplied values
// for these keys are overwritten.
const (
	MetadataUserID    = "user-id"
	MetadataOrgID     = "org-id"
	MetadataRole      = "role"
	MetadataRequestID = "x-request-id"
)

// GetUserIDFromContext extracts the user ID from the gRPC metadata.
// It expects a header named "user-id".
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}
	return int32Header(md, MetadataUserID)
}

// RequestContextFromContext builds the workflow identity from metadata set by
// the identity interceptor, the peer address and the caller's user agent.
func RequestContextFromContext(ctx context.Context) (domain.RequestContext, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.RequestContext{}, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	orgID, err := int32Header(md, MetadataOrgID)
	if err != nil {
		return domain.RequestContext{}, err
	}
	rc := domain.RequestContext{
		OrganizationID: orgID,
		Role:           domain.MemberRole(first(md, MetadataRole)),
		UserAgent:      first(md, "user-agent"),
		RequestID:      first(md, MetadataRequestID),
	}
	if ids := md.Get(MetadataUserID); len(ids) > 0 && ids[0] != "" {
		if rc.ActorID, err = int32Header(md, MetadataUserID); err != nil {
			return domain.RequestContext{}, err
		}
	}

	if fwd := first(md, "x-forwarded-for"); fwd != "" {
		rc.IP = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		rc.IP = p.Addr.String()
		if host, _, err := net.SplitHostPort(rc.IP); err == nil {
			rc.IP = host
		}
	}
	return rc, nil
}

func int32Header(md metadata.MD, key string) (int32, error) {
	values := md.Get(key)
	if len(values) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "%s is not provided in metadata", key)
	}
	v, err := strconv.ParseInt(values[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return int32(v), nil
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
