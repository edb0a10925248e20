package interceptor

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	api "hireflow-backend/internal/api/grpc"
	"hireflow-backend/internal/config"
	"hireflow-backend/internal/security"

	"github.com/google/uuid"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate unary RPCs and
// attach the caller's identity as metadata
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := config.GetSecurityLevel(info.FullMethod)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			return handler(ctx, req)
		}

		token, err := i.extractToken(ctx)
		if err != nil {
			return nil, err
		}

		claims, err := i.tokenManager.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		return handler(withIdentity(ctx, claims), req)
	}
}

// withIdentity copies the incoming metadata and overwrites the identity keys
// so a client cannot assert its own user or organization.
func withIdentity(ctx context.Context, claims *security.UserClaims) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}

	md.Set(api.MetadataOrgID, strconv.Itoa(int(claims.OrganizationID)))
	if claims.Type == security.TokenTypeAccess {
		md.Set(api.MetadataUserID, strconv.Itoa(int(claims.UserID)))
		md.Set(api.MetadataRole, string(claims.Role))
	} else {
		md.Delete(api.MetadataUserID)
		md.Delete(api.MetadataRole)
	}
	if len(md.Get(api.MetadataRequestID)) == 0 {
		md.Set(api.MetadataRequestID, uuid.NewString())
	}
	return metadata.NewIncomingContext(ctx, md)
}

func (i *AuthInterceptor) extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}

	return token, nil
}
