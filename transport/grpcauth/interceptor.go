// Package grpcauth adapts the auth package to gRPC servers.
//
// Methods are protected by full method name; methods without an operation
// are denied unless AllowUnlisted names them. The bearer token is read from
// the "authorization" metadata entry; other metadata is exposed to header
// checks under canonical header names.
package grpcauth

import (
	"context"
	"net/textproto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/transport/httpauth"
)

// AuthorizationKey is the metadata key carrying "Bearer <token>".
const AuthorizationKey = "authorization"

type options struct {
	logger   observe.Logger
	optional map[string]bool
	public   map[string]bool
}

// Option configures an Interceptor.
type Option func(*options)

// WithLogger logs failures with their internal reason.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// OptionalToken lets calls to the named methods proceed without a token.
func OptionalToken(fullMethods ...string) Option {
	return func(o *options) {
		for _, m := range fullMethods {
			o.optional[m] = true
		}
	}
}

// AllowUnlisted lets calls to the named methods through without any
// checks, for example the gRPC health service. Every other method without
// an operation is rejected with codes.PermissionDenied.
func AllowUnlisted(fullMethods ...string) Option {
	return func(o *options) {
		for _, m := range fullMethods {
			o.public[m] = true
		}
	}
}

// Interceptor authorizes unary and streaming calls.
type Interceptor struct {
	resolver *auth.SessionResolver
	ops      map[string]*auth.Operation
	opts     options
}

// NewInterceptor protects each full method name in ops with its operation.
func NewInterceptor(resolver *auth.SessionResolver, ops map[string]*auth.Operation, opts ...Option) *Interceptor {
	if resolver == nil {
		panic("grpcauth: NewInterceptor requires a resolver")
	}
	o := options{optional: make(map[string]bool), public: make(map[string]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	copied := make(map[string]*auth.Operation, len(ops))
	for m, op := range ops {
		copied[m] = op
	}
	return &Interceptor{resolver: resolver, ops: copied, opts: o}
}

// Unary returns the unary server interceptor.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream returns the stream server interceptor.
func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authorizedStream{ServerStream: ss, ctx: ctx})
	}
}

func (i *Interceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	op, ok := i.ops[method]
	if !ok {
		if i.opts.public[method] {
			return ctx, nil
		}
		httpauth.LogFailure(ctx, i.opts.logger, method, auth.ErrForbidden)
		return ctx, status.Error(codes.PermissionDenied, auth.MessageForbidden)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	ctx = auth.WithHeaders(ctx, headers(md))

	var authorization string
	if v := md.Get(AuthorizationKey); len(v) > 0 {
		authorization = v[0]
	}

	ctx, err := httpauth.Authorize(ctx, i.resolver, op, authorization, i.opts.optional[method])
	if err != nil {
		httpauth.LogFailure(ctx, i.opts.logger, op.Name(), err)
		return ctx, Status(err)
	}
	return ctx, nil
}

// Status converts an auth error to a gRPC status error carrying the
// generic client message.
func Status(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(Code(err), auth.PublicMessage(err))
}

// Code maps an auth error to a gRPC code.
func Code(err error) codes.Code {
	switch auth.Classify(err) {
	case auth.OutcomeOK:
		return codes.OK
	case auth.OutcomeUnauthenticated:
		return codes.Unauthenticated
	case auth.OutcomeInactive:
		return codes.FailedPrecondition
	case auth.OutcomeForbidden:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

func headers(md metadata.MD) map[string][]string {
	h := make(map[string][]string, len(md))
	for k, v := range md {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return h
}

type authorizedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authorizedStream) Context() context.Context {
	return s.ctx
}
