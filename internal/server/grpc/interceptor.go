package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/rpc"
	"github.com/dmitrijs2005/photorestore/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// accessTokenInterceptor authenticates every method outside rpc.PublicMethods
// and puts the user ID into the context. Expired tokens are reported with the
// message of common.ErrTokenExpired so clients know to refresh.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if rpc.PublicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	ctx = context.WithValue(ctx, userIDKey, userID)
	return handler(ctx, req)
}

// observeInterceptor records request count and latency per method and logs
// failures.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	if s.metrics != nil {
		s.metrics.RPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		s.metrics.RPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	}

	switch code {
	case codes.OK:
		s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "duration", time.Since(start))
	case codes.Internal, codes.Unknown:
		s.logger.Error(ctx, "rpc failed", "method", info.FullMethod, "code", code.String(), "error", err)
	default:
		s.logger.Info(ctx, "rpc rejected", "method", info.FullMethod, "code", code.String())
	}
	return resp, err
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// clientIP prefers the first x-forwarded-for entry and falls back to the
// transport peer.
func clientIP(ctx context.Context) string {
	if fwd := firstMetadata(ctx, common.ForwardedForHeaderName); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
