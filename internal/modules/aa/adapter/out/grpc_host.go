package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"gatekit/internal/modules/aa/adapter/out/rpc"
	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/modules/aa/dto"
	aaout "gatekit/internal/modules/aa/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 30 * time.Second
)

// GRPCHost launches AA plugin binaries and keeps each one alive until its
// process handle is closed. Hooks of one session may arrive minutes apart,
// so unlike a one-shot command runner the subprocess must outlive the call.
type GRPCHost struct{}

func NewGRPCHost() aaout.Host {
	return &GRPCHost{}
}

func (h *GRPCHost) Launch(_ context.Context, binaryPath string) (aaout.PluginProcess, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  rpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          rpc.PluginMap(nil),
		Cmd:              exec.Command(binaryPath),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel}),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(rpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(rpc.AAPluginClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return &grpcPluginProcess{client: client, rpc: typed}, nil
}

type grpcPluginProcess struct {
	client *plugin.Client
	rpc    rpc.AAPluginClient
}

func (p *grpcPluginProcess) Configure(ctx context.Context, configText string) error {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	if err := p.rpc.Configure(callCtx, configText); err != nil {
		return fmt.Errorf("configure plugin: %w", err)
	}
	return nil
}

func (p *grpcPluginProcess) Authenticate(ctx context.Context, in domain.AuthenticateInput) (*domain.Verdict, error) {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	reply, err := p.rpc.Authenticate(callCtx, authenticateInputToWire(in))
	if err != nil {
		return nil, fmt.Errorf("authenticate hook: %w", err)
	}
	return verdictFromWire(reply)
}

func (p *grpcPluginProcess) Authorize(ctx context.Context, in domain.AuthorizeInput) (*domain.Verdict, error) {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	reply, err := p.rpc.Authorize(callCtx, authorizeInputToWire(in))
	if err != nil {
		return nil, fmt.Errorf("authorize hook: %w", err)
	}
	return verdictFromWire(reply)
}

func (p *grpcPluginProcess) SessionEnded(ctx context.Context, in domain.SessionEndedInput) (*domain.Verdict, error) {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	reply, err := p.rpc.SessionEnded(callCtx, &dto.SessionEndedInput{
		SessionID:     in.SessionID,
		Cookie:        map[string]any(in.Cookie),
		SessionCookie: map[string]any(in.SessionCookie),
	})
	if err != nil {
		return nil, fmt.Errorf("session_ended hook: %w", err)
	}
	return verdictFromWire(reply)
}

func (p *grpcPluginProcess) Close() {
	p.client.Kill()
}

func callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, defaultCallTimeout)
}

func authenticateInputToWire(in domain.AuthenticateInput) *dto.AuthenticateInput {
	c := in.Connection
	return &dto.AuthenticateInput{
		Cookie:          map[string]any(in.Cookie),
		SessionCookie:   map[string]any(in.SessionCookie),
		SessionID:       c.SessionID,
		Protocol:        c.Protocol,
		ConnectionName:  c.ConnectionName,
		ClientIP:        c.ClientIP,
		ClientPort:      c.ClientPort,
		ClientHostname:  c.ClientHostname,
		GatewayUser:     c.GatewayUsername,
		GatewayDomain:   c.GatewayDomain,
		GatewayPassword: c.GatewayPassword,
		ServerUsername:  c.ServerUsername,
		ServerDomain:    c.ServerDomain,
		KeyValuePairs:   c.KeyValuePairs,
	}
}

func authorizeInputToWire(in domain.AuthorizeInput) *dto.AuthorizeInput {
	c := in.Connection
	return &dto.AuthorizeInput{
		Cookie:          map[string]any(in.Cookie),
		SessionCookie:   map[string]any(in.SessionCookie),
		SessionID:       c.SessionID,
		Protocol:        c.Protocol,
		ConnectionName:  c.ConnectionName,
		ClientIP:        c.ClientIP,
		ClientPort:      c.ClientPort,
		ClientHostname:  c.ClientHostname,
		GatewayUser:     c.GatewayUsername,
		GatewayDomain:   c.GatewayDomain,
		GatewayPassword: c.GatewayPassword,
		GatewayGroups:   c.GatewayGroups,
		ServerIP:        c.ServerIP,
		ServerPort:      c.ServerPort,
		ServerHostname:  c.ServerHostname,
		ServerUsername:  c.ServerUsername,
		ServerDomain:    c.ServerDomain,
		KeyValuePairs:   c.KeyValuePairs,
	}
}

func verdictFromWire(reply *dto.Verdict) (*domain.Verdict, error) {
	verdict := &domain.Verdict{
		Action:             domain.Action(reply.Verdict),
		Reason:             reply.Reason,
		DenyReason:         reply.DenyReason,
		AdditionalMetadata: reply.AdditionalMetadata,
		GatewayUser:        reply.GatewayUser,
		GatewayGroups:      reply.GatewayGroups,
		Cookie:             domain.Cookie(reply.Cookie),
		SessionCookie:      domain.Cookie(reply.SessionCookie),
	}
	if len(reply.Question) > 0 {
		if len(reply.Question) != 3 {
			return nil, fmt.Errorf("plugin verdict: question has %d fields, want 3", len(reply.Question))
		}
		key, keyOK := reply.Question[0].(string)
		prompt, promptOK := reply.Question[1].(string)
		disableEcho, echoOK := reply.Question[2].(bool)
		if !keyOK || !promptOK || !echoOK {
			return nil, fmt.Errorf("plugin verdict: malformed question tuple")
		}
		verdict.Question = &domain.Question{Key: key, Prompt: prompt, DisableEcho: disableEcho}
	}
	return verdict, nil
}
