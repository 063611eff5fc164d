// Package rpc defines the wire contract between the session broker host and
// an AA plugin binary: a hashicorp/go-plugin gRPC service with a JSON codec,
// so both sides marshal the hook dictionaries without generated stubs.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"gatekit/internal/modules/aa/dto"
)

const (
	PluginMapKey       = "aa"
	serviceName        = "gatekit.aa.v1.AAPlugin"
	jsonCodecName      = "json"
	methodConfigure    = "/" + serviceName + "/Configure"
	methodAuthenticate = "/" + serviceName + "/Authenticate"
	methodAuthorize    = "/" + serviceName + "/Authorize"
	methodSessionEnded = "/" + serviceName + "/SessionEnded"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "GATEKIT_PLUGIN",
	MagicCookieValue: "gatekit-aa",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type ConfigureRequest struct {
	Configuration string `json:"configuration"`
}

type AAPluginServer interface {
	Configure(ctx context.Context, in *ConfigureRequest) (*Empty, error)
	Authenticate(ctx context.Context, in *dto.AuthenticateInput) (*dto.Verdict, error)
	Authorize(ctx context.Context, in *dto.AuthorizeInput) (*dto.Verdict, error)
	SessionEnded(ctx context.Context, in *dto.SessionEndedInput) (*dto.Verdict, error)
}

type AAPluginClient interface {
	Configure(ctx context.Context, configText string) error
	Authenticate(ctx context.Context, in *dto.AuthenticateInput) (*dto.Verdict, error)
	Authorize(ctx context.Context, in *dto.AuthorizeInput) (*dto.Verdict, error)
	SessionEnded(ctx context.Context, in *dto.SessionEndedInput) (*dto.Verdict, error)
}

type aaPluginClient struct {
	conn *grpc.ClientConn
}

func NewAAPluginClient(conn *grpc.ClientConn) AAPluginClient {
	return &aaPluginClient{conn: conn}
}

func (c *aaPluginClient) Configure(ctx context.Context, configText string) error {
	in := &ConfigureRequest{Configuration: configText}
	return c.conn.Invoke(ctx, methodConfigure, in, &Empty{}, grpc.CallContentSubtype(jsonCodecName))
}

func (c *aaPluginClient) Authenticate(ctx context.Context, in *dto.AuthenticateInput) (*dto.Verdict, error) {
	out := &dto.Verdict{}
	if err := c.conn.Invoke(ctx, methodAuthenticate, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *aaPluginClient) Authorize(ctx context.Context, in *dto.AuthorizeInput) (*dto.Verdict, error) {
	out := &dto.Verdict{}
	if err := c.conn.Invoke(ctx, methodAuthorize, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *aaPluginClient) SessionEnded(ctx context.Context, in *dto.SessionEndedInput) (*dto.Verdict, error) {
	out := &dto.Verdict{}
	if err := c.conn.Invoke(ctx, methodSessionEnded, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func unaryHandler[Req any, Resp any](fullMethod string, call func(context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterAAPluginServer(server grpc.ServiceRegistrar, impl AAPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AAPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Configure",
				Handler:    unaryHandler(methodConfigure, impl.Configure),
			},
			{
				MethodName: "Authenticate",
				Handler:    unaryHandler(methodAuthenticate, impl.Authenticate),
			},
			{
				MethodName: "Authorize",
				Handler:    unaryHandler(methodAuthorize, impl.Authorize),
			},
			{
				MethodName: "SessionEnded",
				Handler:    unaryHandler(methodSessionEnded, impl.SessionEnded),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/aa-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AAPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAAPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAAPluginClient(conn), nil
}

func PluginMap(impl AAPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
